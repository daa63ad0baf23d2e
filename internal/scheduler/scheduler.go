// Package scheduler implements the four scheduling policies (FCFS,
// SJF, RR, AGING) that multiplex CPU time across loaded processes,
// drive instruction execution, and handle page-fault-induced
// requeueing.
package scheduler

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/fynnsu/shellvm/internal/frame"
	"github.com/fynnsu/shellvm/internal/process"
)

// Sentinel errors, spec §7.
var (
	ErrNoPolicySelected   = errors.New("scheduler: no policy selected")
	ErrBusy               = errors.New("scheduler: cannot change policy while processes are present")
	ErrInvariantViolation = errors.New("scheduler: queue in an inconsistent state")
	ErrAlreadyRunning     = errors.New("scheduler: run is already in progress")
)

// Executor feeds a process's next instruction line back into the
// command interpreter. It must never call Scheduler.Run itself — per
// spec §5/§9, re-entrant execution (a script line that is itself
// run/exec) must only enqueue new work; the outer Run loop drains it.
type Executor func(pcb *process.PCB, line string) error

type queueEntry struct {
	pcb      *process.PCB
	priority int
}

// Scheduler holds the waiting queue, the current-process slot, and
// the active policy.
type Scheduler struct {
	loader *process.Loader
	fs     *frame.Store
	log    zerolog.Logger

	policy Policy
	queue  []queueEntry

	currentPCB      *process.PCB
	currentPriority int

	nProcesses int
	running    bool
}

// New builds a Scheduler with no policy selected (spec: policy change
// is only permitted while n_processes == 0, which is vacuously true at
// construction).
func New(loader *process.Loader, fs *frame.Store, log zerolog.Logger) *Scheduler {
	return &Scheduler{loader: loader, fs: fs, log: log, policy: None}
}

// Policy returns the currently active policy.
func (s *Scheduler) Policy() Policy { return s.policy }

// HasWork reports whether any process is resident or current.
func (s *Scheduler) HasWork() bool { return s.nProcesses > 0 }

// SetPolicy changes the active policy. Rejected with ErrBusy unless
// n_processes == 0.
func (s *Scheduler) SetPolicy(p Policy) error {
	if p == s.policy {
		return nil
	}
	if s.nProcesses != 0 {
		s.log.Warn().Stringer("requested", p).Stringer("active", s.policy).Msg("scheduler: policy change rejected, processes present")
		return ErrBusy
	}
	s.policy = p
	return nil
}

// Add submits a PCB to the waiting queue under the active policy's
// enqueue discipline (spec §4.5). SJF/AGING use the PCB's initial
// bound as its priority.
func (s *Scheduler) Add(pcb *process.PCB) error {
	switch s.policy {
	case FCFS, RR:
		s.enqueueBack(queueEntry{pcb: pcb})
	case SJF, AGING:
		s.enqueueByPriority(queueEntry{pcb: pcb, priority: pcb.Bound})
	default:
		return ErrNoPolicySelected
	}
	s.nProcesses++
	return nil
}

func (s *Scheduler) enqueueBack(e queueEntry) {
	s.queue = append(s.queue, e)
}

// enqueueByPriority inserts e immediately after every existing entry
// whose priority is <= e.priority, which keeps ties in FIFO order
// among equal priorities (mirrors scheduler.c's add_with_priority: it
// walks past every node with priority <= the new one before
// inserting).
func (s *Scheduler) enqueueByPriority(e queueEntry) {
	i := 0
	for i < len(s.queue) && s.queue[i].priority <= e.priority {
		i++
	}
	s.queue = append(s.queue, queueEntry{})
	copy(s.queue[i+1:], s.queue[i:])
	s.queue[i] = e
}

func (s *Scheduler) popFront() (queueEntry, bool) {
	if len(s.queue) == 0 {
		return queueEntry{}, false
	}
	e := s.queue[0]
	s.queue = s.queue[1:]
	return e, true
}

func (s *Scheduler) decrPriorities() {
	for i := range s.queue {
		if s.queue[i].priority > 0 {
			s.queue[i].priority--
		}
	}
}

// requeueCurrent re-enqueues the current PCB under the active
// policy's discipline and clears the current slot. Used both for
// page-fault requeues and for RR/AGING preemption.
func (s *Scheduler) requeueCurrent() {
	switch s.policy {
	case FCFS, RR:
		s.enqueueBack(queueEntry{pcb: s.currentPCB})
	case SJF, AGING:
		s.enqueueByPriority(queueEntry{pcb: s.currentPCB, priority: s.currentPriority})
	}
	s.currentPCB = nil
}

// Run drives the scheduler until the waiting queue and current slot
// are both empty, or ctx is cancelled. exec is invoked once per
// successfully read instruction.
func (s *Scheduler) Run(ctx context.Context, exec Executor) error {
	if s.running {
		return ErrAlreadyRunning
	}
	s.running = true
	defer func() { s.running = false }()

	for s.nProcesses > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if s.currentPCB == nil {
			e, ok := s.popFront()
			if !ok {
				s.log.Error().Msg("scheduler: n_processes > 0 but waiting queue is empty")
				return ErrInvariantViolation
			}
			s.currentPCB = e.pcb
			s.currentPriority = e.priority
		}

		switch s.policy {
		case FCFS, SJF:
			s.tick(exec)
		case RR:
			s.runRR(exec)
		case AGING:
			s.runAGING(exec)
		default:
			return ErrNoPolicySelected
		}
	}
	return nil
}

// tick executes exactly one instruction for the current process,
// implementing the four-step execution order in spec §4.5: read, then
// (on fault) requeue-and-return, else advance pc, check termination,
// and only then invoke the executor.
func (s *Scheduler) tick(exec Executor) {
	pcb := s.currentPCB

	line, fault, err := s.loader.ReadInstruction(pcb)
	if fault {
		if err != nil {
			s.log.Error().Err(err).Uint64("pid", pcb.PID).Msg("scheduler: page load failed, requeueing for retry")
		}
		s.requeueCurrent()
		return
	}

	pcb.PC++
	if pcb.Done() {
		if err := s.loader.Free(pcb); err != nil {
			s.log.Error().Err(err).Uint64("pid", pcb.PID).Msg("scheduler: failed to free completed process")
		}
		s.nProcesses--
		s.currentPCB = nil
		if s.nProcesses == 0 {
			s.fs.ResetAll()
		}
	}

	if err := exec(pcb, line); err != nil {
		s.log.Error().Err(err).Uint64("pid", pcb.PID).Msg("scheduler: executor returned an error")
	}
}

// runRR runs the current process for up to RRPreemptFreq instructions,
// then unconditionally re-enqueues it at the tail if it is still
// current (i.e. didn't fault or terminate).
func (s *Scheduler) runRR(exec Executor) {
	for i := 0; i < RRPreemptFreq; i++ {
		if s.currentPCB == nil {
			break
		}
		s.tick(exec)
	}
	if s.currentPCB != nil {
		s.requeueCurrent()
	}
}

// runAGING runs the current process for one instruction, ages every
// queued process's priority down by one, and preempts the current
// process if the new head of the queue now has strictly lower
// priority.
func (s *Scheduler) runAGING(exec Executor) {
	s.tick(exec)
	s.decrPriorities()

	if s.currentPCB != nil && s.nProcesses > 1 && len(s.queue) > 0 && s.queue[0].priority < s.currentPriority {
		s.requeueCurrent()
	}
}
