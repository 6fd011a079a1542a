package access

import (
	"sort"
	"strings"
)

// RoutePolicy classifies what a route demands from the requester.
type RoutePolicy int

const (
	// PolicyPublic routes render for everyone.
	PolicyPublic RoutePolicy = iota
	// PolicyExempt routes are outside the gate entirely, they carry their
	// own auth (API token checks and the like).
	PolicyExempt
	// PolicyAuthRequired routes need a valid session.
	PolicyAuthRequired
	// PolicyAuthVerificationRequired routes need a valid session AND a
	// verified principal.
	PolicyAuthVerificationRequired
)

func (p RoutePolicy) String() string {
	switch p {
	case PolicyExempt:
		return "exempt"
	case PolicyAuthRequired:
		return "auth"
	case PolicyAuthVerificationRequired:
		return "auth+verified"
	default:
		return "public"
	}
}

// RequiresSession reports whether the policy demands a valid session.
func (p RoutePolicy) RequiresSession() bool {
	return p == PolicyAuthRequired || p == PolicyAuthVerificationRequired
}

// RouteRule binds a path prefix to a policy.
type RouteRule struct {
	Prefix string
	Policy RoutePolicy
}

// RouteTable resolves a request path to a policy by longest prefix match.
// Unknown paths get the fallback policy, so a page added without a rule
// renders publicly instead of breaking; anything sensitive must be listed.
type RouteTable struct {
	rules    []RouteRule
	fallback RoutePolicy
}

func NewRouteTable(fallback RoutePolicy, rules ...RouteRule) *RouteTable {
	t := &RouteTable{fallback: fallback}
	for _, r := range rules {
		t.Add(r.Prefix, r.Policy)
	}
	return t
}

// DefaultRouteTable covers the application's route classes: the landing and
// sign-in pages are public, the verification flow needs a session, feature
// pages need a verified session, and the API manages its own auth.
func DefaultRouteTable() *RouteTable {
	return NewRouteTable(PolicyPublic,
		RouteRule{Prefix: "/", Policy: PolicyPublic},
		RouteRule{Prefix: "/signin", Policy: PolicyPublic},
		RouteRule{Prefix: "/signup", Policy: PolicyPublic},
		RouteRule{Prefix: "/api", Policy: PolicyExempt},
		RouteRule{Prefix: "/vkyc", Policy: PolicyAuthRequired},
		RouteRule{Prefix: "/chat", Policy: PolicyAuthVerificationRequired},
		RouteRule{Prefix: "/library", Policy: PolicyAuthVerificationRequired},
		RouteRule{Prefix: "/consultation", Policy: PolicyAuthVerificationRequired},
		RouteRule{Prefix: "/documents", Policy: PolicyAuthVerificationRequired},
		RouteRule{Prefix: "/reports", Policy: PolicyAuthVerificationRequired},
		RouteRule{Prefix: "/profile", Policy: PolicyAuthVerificationRequired},
	)
}

// Add registers a rule, replacing any existing rule for the same prefix.
// Rules are kept longest prefix first so lookup can take the first hit.
func (t *RouteTable) Add(prefix string, policy RoutePolicy) *RouteTable {
	prefix = normalizePrefix(prefix)

	for i, r := range t.rules {
		if r.Prefix == prefix {
			t.rules[i].Policy = policy
			return t
		}
	}

	t.rules = append(t.rules, RouteRule{Prefix: prefix, Policy: policy})
	sort.SliceStable(t.rules, func(i, j int) bool {
		return len(t.rules[i].Prefix) > len(t.rules[j].Prefix)
	})

	return t
}

// PolicyFor resolves the policy for a request path.
func (t *RouteTable) PolicyFor(path string) RoutePolicy {
	path = normalizePrefix(path)

	for _, r := range t.rules {
		if matchPrefix(path, r.Prefix) {
			return r.Policy
		}
	}

	return t.fallback
}

// Rules returns a copy of the table, longest prefix first.
func (t *RouteTable) Rules() []RouteRule {
	out := make([]RouteRule, len(t.rules))
	copy(out, t.rules)
	return out
}

func normalizePrefix(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

// matchPrefix matches whole path segments, so "/chat" covers "/chat" and
// "/chat/123" but not "/chatter".
func matchPrefix(path, prefix string) bool {
	if prefix == "/" {
		return path == "/"
	}

	if !strings.HasPrefix(path, prefix) {
		return false
	}

	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
