package domain

import "time"

// PRKey addresses a pull request within one fetch.
type PRKey struct {
	Repository string
	Number     int
}

// Confirmer reports whether the user produced a qualifying event on a pull
// request on the target date.
type Confirmer func(number int, repository string) bool

// EventLog records when the user reviewed or commented on each pull request.
type EventLog map[PRKey][]time.Time

// Add records an event.
func (l EventLog) Add(repository string, number int, at time.Time) {
	key := PRKey{Repository: repository, Number: number}
	l[key] = append(l[key], at)
}

// Confirmer returns a Confirmer that accepts a pull request when any of its
// events satisfies onDate. A nil log confirms nothing.
func (l EventLog) Confirmer(onDate func(time.Time) bool) Confirmer {
	return func(number int, repository string) bool {
		for _, at := range l[PRKey{Repository: repository, Number: number}] {
			if onDate(at) {
				return true
			}
		}
		return false
	}
}
