package cache

// Builder can build cache simulators.
type Builder struct {
	numSets          int
	wayAssociativity int
	lineSize         int
	writePolicy      WritePolicy
	writeMissPolicy  WriteMissPolicy
}

// MakeBuilder creates a new builder with a 16 KB, 4-way, 64 B-line,
// write-back cache.
func MakeBuilder() Builder {
	return Builder{
		numSets:          64,
		wayAssociativity: 4,
		lineSize:         64,
		writePolicy:      WriteBack,
		writeMissPolicy:  WriteMissDefault,
	}
}

// WithNumSets sets the number of sets of the cache to build.
func (b Builder) WithNumSets(numSets int) Builder {
	b.numSets = numSets
	return b
}

// WithWayAssociativity sets the way associativity of the cache to build.
func (b Builder) WithWayAssociativity(wayAssociativity int) Builder {
	b.wayAssociativity = wayAssociativity
	return b
}

// WithLineSize sets the line size in bytes of the cache to build.
func (b Builder) WithLineSize(lineSize int) Builder {
	b.lineSize = lineSize
	return b
}

// WithGeometry copies the set count, the associativity, and the line size
// from a validated geometry.
func (b Builder) WithGeometry(g Geometry) Builder {
	b.numSets = g.NumSets()
	b.wayAssociativity = g.Associativity()
	b.lineSize = g.LineSize()

	return b
}

// WithWritePolicy sets the write policy of the cache to build.
func (b Builder) WithWritePolicy(writePolicy WritePolicy) Builder {
	b.writePolicy = writePolicy
	return b
}

// WithWriteMissPolicy sets whether a write miss installs a line.
func (b Builder) WithWriteMissPolicy(writeMissPolicy WriteMissPolicy) Builder {
	b.writeMissPolicy = writeMissPolicy
	return b
}

// Build creates the simulator. It returns a *ConfigError if the geometry
// cannot be simulated.
func (b Builder) Build() (*Simulator, error) {
	g, err := NewGeometry(b.numSets, b.wayAssociativity, b.lineSize)
	if err != nil {
		return nil, err
	}

	b.mustBeKnownPolicies()

	s := &Simulator{
		store:           NewStore(g),
		writePolicy:     b.writePolicy,
		writeMissPolicy: b.writeMissPolicy.resolve(b.writePolicy),
	}

	return s, nil
}

func (b Builder) mustBeKnownPolicies() {
	switch b.writePolicy {
	case WriteBack, WriteThrough:
	default:
		panic("unknown write policy: " + b.writePolicy.String())
	}

	switch b.writeMissPolicy {
	case WriteMissDefault, WriteAround, WriteAllocate:
	default:
		panic("unknown write-miss policy: " + b.writeMissPolicy.String())
	}
}
