package gpio

// FakeInput is a test double for an input line. Tests either set Value directly
// or script a sequence of Samples.
type FakeInput struct {
	// Value is returned when no samples are scripted.
	Value bool

	// Samples contains scripted values. Each call to Read consumes the next
	// sample; once exhausted the last sample is returned repeatedly.
	Samples []bool

	// index tracks current position in Samples
	index int

	// ReadError, if set, will be returned by Read.
	ReadError error

	// Reads counts calls to Read.
	Reads int
}

// NewFakeInput creates a FakeInput reading v.
func NewFakeInput(v bool) *FakeInput {
	return &FakeInput{Value: v}
}

// Read returns the current value or the next scripted sample.
func (f *FakeInput) Read() (bool, error) {
	f.Reads++
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.Samples) == 0 {
		return f.Value, nil
	}
	v := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return v, nil
}

// Set changes the value returned by Read and discards any scripted samples.
func (f *FakeInput) Set(v bool) {
	f.Value = v
	f.Samples = nil
	f.index = 0
}

// FakeOutput is a test double for an output line that records every write.
type FakeOutput struct {
	// Value is the last level written.
	Value bool

	// History contains every level written, in order.
	History []bool

	// SetError, if set, will be returned by Set (the write is still recorded).
	SetError error
}

// NewFakeOutput creates a FakeOutput with an initial level. The initial level
// is not part of History.
func NewFakeOutput(v bool) *FakeOutput {
	return &FakeOutput{Value: v}
}

// Set records the level.
func (f *FakeOutput) Set(on bool) error {
	f.Value = on
	f.History = append(f.History, on)
	return f.SetError
}

// Writes returns the number of Set calls.
func (f *FakeOutput) Writes() int {
	return len(f.History)
}

// Reset clears the recorded history.
func (f *FakeOutput) Reset() {
	f.History = nil
	f.SetError = nil
}

// FakeLineSet bundles one fake per line and exposes it as a LineSet.
type FakeLineSet struct {
	Button   *FakeInput
	Rail     *FakeInput
	Liveness *FakeInput
	Aux      *FakeInput

	Buffer      *FakeOutput
	SOMPower    *FakeOutput
	SleepWake   *FakeOutput
	UARTDisable *FakeOutput
	PowerLED    *FakeOutput
	DebugLED    *FakeOutput
}

// NewFakeLineSet creates fakes with every input low and outputs at their
// startup levels.
func NewFakeLineSet() *FakeLineSet {
	return &FakeLineSet{
		Button:      NewFakeInput(false),
		Rail:        NewFakeInput(false),
		Liveness:    NewFakeInput(false),
		Aux:         NewFakeInput(false),
		Buffer:      NewFakeOutput(initBuffer),
		SOMPower:    NewFakeOutput(initSOMPower),
		SleepWake:   NewFakeOutput(initSleepWake),
		UARTDisable: NewFakeOutput(initUARTDisable),
		PowerLED:    NewFakeOutput(initLED),
		DebugLED:    NewFakeOutput(initLED),
	}
}

// LineSet returns the fakes behind the LineSet interfaces.
func (f *FakeLineSet) LineSet() *LineSet {
	return &LineSet{
		Button:      f.Button,
		Rail:        f.Rail,
		Liveness:    f.Liveness,
		Aux:         f.Aux,
		Buffer:      f.Buffer,
		SOMPower:    f.SOMPower,
		SleepWake:   f.SleepWake,
		UARTDisable: f.UARTDisable,
		PowerLED:    f.PowerLED,
		DebugLED:    f.DebugLED,
	}
}
