package gpustat

// noCopy makes go vet report copies of a lock by value.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// statusLock clears a single status flag while it is held and restores the
// value the flag had at acquisition on release.
type statusLock struct {
	_ noCopy

	reg      *Register
	field    Field
	prior    bool
	released bool
}

func (l *statusLock) acquire(reg *Register, field Field) {
	l.reg = reg
	l.field = field
	l.prior = reg.Flag(field)
	reg.SetFlag(field, false)
}

// Release restores the flag. Only the first call has an effect.
func (l *statusLock) Release() {
	if l.released {
		return
	}
	l.released = true
	l.reg.SetFlag(l.field, l.prior)
}

// GPUBusyLock marks the GPU as not ready to receive commands.
type GPUBusyLock struct {
	statusLock
}

// LockGPUBusy clears the ready for command flag until the returned lock is
// released:
//
//	lock := gpustat.LockGPUBusy(status)
//	defer lock.Release()
func LockGPUBusy(reg *Register) *GPUBusyLock {
	l := &GPUBusyLock{}
	l.acquire(reg, ReadyForCommand)
	return l
}

// CommandStreamLock marks the GPU as not ready to receive DMA blocks.
type CommandStreamLock struct {
	statusLock
}

// LockCommandStream clears the ready for DMA block flag until the returned
// lock is released.
func LockCommandStream(reg *Register) *CommandStreamLock {
	l := &CommandStreamLock{}
	l.acquire(reg, ReadyForDMABlock)
	return l
}

// WithGPUBusy calls fn while holding a GPU busy lock. The flag is restored
// when fn returns or panics.
func WithGPUBusy(reg *Register, fn func() error) error {
	lock := LockGPUBusy(reg)
	defer lock.Release()
	return fn()
}

// WithCommandStream calls fn while holding a command stream lock. The flag is
// restored when fn returns or panics.
func WithCommandStream(reg *Register, fn func() error) error {
	lock := LockCommandStream(reg)
	defer lock.Release()
	return fn()
}
