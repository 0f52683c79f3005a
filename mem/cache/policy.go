package cache

import (
	"fmt"
	"strings"
)

// WritePolicy decides when a write reaches the memory below the cache.
type WritePolicy int

// The supported write policies.
const (
	WriteBack WritePolicy = iota
	WriteThrough
)

func (p WritePolicy) String() string {
	switch p {
	case WriteBack:
		return "write-back"
	case WriteThrough:
		return "write-through"
	default:
		return fmt.Sprintf("WritePolicy(%d)", int(p))
	}
}

// ParseWritePolicy accepts "write-back", "writeback", "wb", "write-through",
// "writethrough" and "wt", ignoring case.
func ParseWritePolicy(s string) (WritePolicy, error) {
	switch normalizePolicyName(s) {
	case "writeback", "wb":
		return WriteBack, nil
	case "writethrough", "wt":
		return WriteThrough, nil
	default:
		return 0, &ConfigError{
			Field:  "write policy",
			Value:  s,
			Reason: "must be write-back or write-through",
		}
	}
}

// WriteMissPolicy decides whether a write miss installs a line.
type WriteMissPolicy int

// The supported write-miss policies. WriteMissDefault resolves to
// WriteAround under write-through and to WriteAllocate under write-back.
const (
	WriteMissDefault WriteMissPolicy = iota
	WriteAround
	WriteAllocate
)

func (p WriteMissPolicy) String() string {
	switch p {
	case WriteMissDefault:
		return "default"
	case WriteAround:
		return "write-around"
	case WriteAllocate:
		return "write-allocate"
	default:
		return fmt.Sprintf("WriteMissPolicy(%d)", int(p))
	}
}

// ParseWriteMissPolicy accepts "write-around", "write-allocate", their
// hyphen-less forms, "default" and the empty string.
func ParseWriteMissPolicy(s string) (WriteMissPolicy, error) {
	switch normalizePolicyName(s) {
	case "", "default":
		return WriteMissDefault, nil
	case "writearound", "around", "nowriteallocate":
		return WriteAround, nil
	case "writeallocate", "allocate":
		return WriteAllocate, nil
	default:
		return 0, &ConfigError{
			Field:  "write-miss policy",
			Value:  s,
			Reason: "must be write-around or write-allocate",
		}
	}
}

func (p WriteMissPolicy) resolve(wp WritePolicy) WriteMissPolicy {
	if p != WriteMissDefault {
		return p
	}

	if wp == WriteThrough {
		return WriteAround
	}

	return WriteAllocate
}

func normalizePolicyName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")

	return s
}
