package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeenSet_WithLeavesReceiverUntouched(t *testing.T) {
	base := NewSeenSet(BranchKey("main"))
	next := base.With(PRNumberKey("acme/api", 1), BranchKey("main"))

	assert.Equal(t, 1, base.Len())
	assert.False(t, base.Contains(PRNumberKey("acme/api", 1)))
	assert.Equal(t, 2, next.Len())
	assert.True(t, next.Contains(PRNumberKey("acme/api", 1)))
	assert.True(t, next.Contains(BranchKey("main")))
}

func TestSeenSet_ZeroValue(t *testing.T) {
	var s SeenSet

	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Contains(BranchKey("main")))
	assert.False(t, s.ContainsAny())
	assert.True(t, s.With(BranchKey("main")).Contains(BranchKey("main")))
}

func TestIdentityKey(t *testing.T) {
	testCases := []struct {
		name     string
		a, b     IdentityKey
		equal    bool
		asString string
	}{
		{
			name:     "same number in different repositories",
			a:        PRNumberKey("acme/api", 7),
			b:        PRNumberKey("acme/web", 7),
			asString: "pr-number:acme/api#7",
		},
		{
			name:     "branch and url with the same text",
			a:        BranchKey("x"),
			b:        PRURLKey("x"),
			asString: "branch:x",
		},
		{
			name:     "same url",
			a:        PRURLKey("https://github.com/acme/api/pull/7"),
			b:        PRURLKey("https://github.com/acme/api/pull/7"),
			equal:    true,
			asString: "pr-url:https://github.com/acme/api/pull/7",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.equal, tc.a == tc.b)
			assert.Equal(t, tc.asString, tc.a.String())
		})
	}
}
