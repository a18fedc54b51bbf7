package domain

import "strconv"

// KeyKind tags which identity an IdentityKey carries.
type KeyKind int

const (
	KeyPRNumber KeyKind = iota + 1
	KeyPRURL
	KeyBranch
)

func (k KeyKind) String() string {
	switch k {
	case KeyPRNumber:
		return "pr-number"
	case KeyPRURL:
		return "pr-url"
	case KeyBranch:
		return "branch"
	default:
		return "unknown"
	}
}

// IdentityKey identifies an activity. Two records describe the same activity
// when any of their keys are equal.
type IdentityKey struct {
	Kind       KeyKind
	Repository string
	Number     int
	Value      string
}

// PRNumberKey identifies a pull request by repository and number.
func PRNumberKey(repository string, number int) IdentityKey {
	return IdentityKey{Kind: KeyPRNumber, Repository: repository, Number: number}
}

// PRURLKey identifies a pull request by its URL.
func PRURLKey(url string) IdentityKey {
	return IdentityKey{Kind: KeyPRURL, Value: url}
}

// BranchKey identifies activity by branch name.
func BranchKey(branch string) IdentityKey {
	return IdentityKey{Kind: KeyBranch, Value: branch}
}

func (k IdentityKey) String() string {
	if k.Kind == KeyPRNumber {
		return k.Kind.String() + ":" + k.Repository + "#" + strconv.Itoa(k.Number)
	}
	return k.Kind.String() + ":" + k.Value
}

// SeenSet holds the identity keys already assigned to a report section.
// It is a value: With returns a new set and leaves the receiver untouched,
// so each pipeline stage hands its result to the next explicitly.
type SeenSet struct {
	keys map[IdentityKey]struct{}
}

// NewSeenSet returns a set holding keys.
func NewSeenSet(keys ...IdentityKey) SeenSet {
	return SeenSet{}.With(keys...)
}

// With returns a set holding the receiver's keys plus keys.
func (s SeenSet) With(keys ...IdentityKey) SeenSet {
	next := make(map[IdentityKey]struct{}, len(s.keys)+len(keys))
	for k := range s.keys {
		next[k] = struct{}{}
	}
	for _, k := range keys {
		next[k] = struct{}{}
	}
	return SeenSet{keys: next}
}

// Contains reports whether key is in the set.
func (s SeenSet) Contains(key IdentityKey) bool {
	_, ok := s.keys[key]
	return ok
}

// ContainsAny reports whether any of keys is in the set.
func (s SeenSet) ContainsAny(keys ...IdentityKey) bool {
	for _, k := range keys {
		if s.Contains(k) {
			return true
		}
	}
	return false
}

// Len returns the number of keys.
func (s SeenSet) Len() int {
	return len(s.keys)
}
