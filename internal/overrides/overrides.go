// Package overrides models the hydra-style key=value configuration
// overrides passed to NeMo entry points. A Set preserves insertion order
// and holds at most one value per key, so every override renders exactly
// once no matter how many times a caller assigns it.
package overrides

import (
	"sort"
	"strconv"
	"strings"

	"nemoctl/internal/shellutil"
)

// Set is an ordered collection of dotted-key overrides such as
// trainer.gpus=1 or exp_manager.create_wandb_logger=true.
type Set struct {
	keys   []string
	values map[string]string
}

// New returns an empty Set.
func New() *Set {
	return &Set{values: make(map[string]string)}
}

// Set assigns value to key, replacing any previous assignment while keeping
// the key's original position. Empty keys are ignored.
func (s *Set) Set(key, value string) *Set {
	key = strings.TrimSpace(key)
	if key == "" {
		return s
	}
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
	return s
}

// SetInt assigns an integer value to key.
func (s *Set) SetInt(key string, value int) *Set {
	return s.Set(key, strconv.Itoa(value))
}

// SetBool assigns a lowercase boolean value to key.
func (s *Set) SetBool(key string, value bool) *Set {
	return s.Set(key, strconv.FormatBool(value))
}

// Get returns the value for key and whether it is present.
func (s *Set) Get(key string) (string, bool) {
	value, ok := s.values[key]
	return value, ok
}

// Len returns the number of overrides in the set.
func (s *Set) Len() int {
	return len(s.keys)
}

// Keys returns the override keys in insertion order.
func (s *Set) Keys() []string {
	cp := make([]string, len(s.keys))
	copy(cp, s.keys)
	return cp
}

// SortedKeys returns the override keys in lexical order.
func (s *Set) SortedKeys() []string {
	cp := s.Keys()
	sort.Strings(cp)
	return cp
}

// Args renders the set as key=value words in insertion order, quoting
// values that the shell would otherwise split or expand.
func (s *Set) Args() []string {
	args := make([]string, 0, len(s.keys))
	for _, key := range s.keys {
		args = append(args, key+"="+shellutil.Quote(s.values[key]))
	}
	return args
}

// String renders the set as a single space-separated argument string.
func (s *Set) String() string {
	return strings.Join(s.Args(), " ")
}

// Merge applies every override from other on top of s, preserving s's
// ordering for keys both sets contain.
func (s *Set) Merge(other *Set) *Set {
	if other == nil {
		return s
	}
	for _, key := range other.keys {
		s.Set(key, other.values[key])
	}
	return s
}

// Parse converts raw key=value words (for example from repeated --set
// flags) into a Set. Words without '=' or with an empty key are rejected.
func Parse(raw []string) (*Set, error) {
	set := New()
	for _, word := range raw {
		key, value, ok := strings.Cut(word, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, &ParseError{Input: word}
		}
		set.Set(key, value)
	}
	return set, nil
}

// ParseError reports a malformed override word.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return "override " + strconv.Quote(e.Input) + " must use key=value form"
}
