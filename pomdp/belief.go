package pomdp

// BeliefState is an unordered multiset of state particles. It owns every
// sample it holds: AddSample transfers ownership in, Free destroys the lot.
type BeliefState struct {
	samples []State
}

// AddSample takes ownership of the state.
func (b *BeliefState) AddSample(state State) {
	b.samples = append(b.samples, state)
}

// CreateSample returns a fresh copy of a uniformly drawn particle. The
// caller owns the copy.
func (b *BeliefState) CreateSample(sim Simulator, rng *RNG) State {
	if len(b.samples) == 0 {
		panic("cannot sample from empty belief")
	}
	return sim.Copy(b.samples[rng.Intn(len(b.samples))])
}

// GetSample borrows a particle without transferring ownership.
func (b *BeliefState) GetSample(rng *RNG) State {
	if len(b.samples) == 0 {
		panic("cannot sample from empty belief")
	}
	return b.samples[rng.Intn(len(b.samples))]
}

// First borrows an arbitrary particle, used to seed priors.
func (b *BeliefState) First() State {
	if len(b.samples) == 0 {
		panic("cannot sample from empty belief")
	}
	return b.samples[0]
}

// Copy duplicates every particle of src into b.
func (b *BeliefState) Copy(src *BeliefState, sim Simulator) {
	for _, s := range src.samples {
		b.samples = append(b.samples, sim.Copy(s))
	}
}

// Move transfers all particles of src into b, leaving src empty.
func (b *BeliefState) Move(src *BeliefState) {
	b.samples = append(b.samples, src.samples...)
	src.samples = nil
}

// Free destroys all owned particles.
func (b *BeliefState) Free(sim Simulator) {
	for _, s := range b.samples {
		sim.FreeState(s)
	}
	b.samples = nil
}

// Samples exposes the particles for display and diagnostics; ownership
// stays with the belief.
func (b *BeliefState) Samples() []State {
	return b.samples
}

func (b *BeliefState) Empty() bool {
	return len(b.samples) == 0
}

func (b *BeliefState) NumSamples() int {
	return len(b.samples)
}
