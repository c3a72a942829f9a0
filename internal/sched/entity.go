package sched

import "container/list"

// Entity is the WRR part of a task. It is flat: there is no group hierarchy,
// so an entity always belongs to the run queue of its task's CPU.
type Entity struct {
	task  *Task
	elem  *list.Element // nil when not queued
	level int

	Weight    Weight
	TimeSlice uint // ticks left; 0 until the first enqueue
}

// Task returns the owning task.
func (se *Entity) Task() *Task { return se.task }

// Queued reports whether se is linked into a priority queue.
func (se *Entity) Queued() bool { return se.elem != nil }

// Level is the priority level se was queued at.
func (se *Entity) Level() int { return se.level }
