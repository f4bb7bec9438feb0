package rbac

import "strings"

// grants is one role's compiled permissions: exact names plus "prefix*"
// wildcards. A bare "*" is the empty prefix and matches everything.
type grants struct {
	exact    map[string]struct{}
	prefixes []string
}

func (g grants) has(perm string) bool {
	if _, ok := g.exact[perm]; ok {
		return true
	}
	for _, p := range g.prefixes {
		if strings.HasPrefix(perm, p) {
			return true
		}
	}
	return false
}

type Checker struct {
	roles map[string]grants
}

// NewChecker compiles a role → permissions table. nil means RolePermissions.
func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	c := &Checker{roles: make(map[string]grants, len(rp))}
	for role, perms := range rp {
		g := grants{exact: map[string]struct{}{}}
		for _, p := range perms {
			if strings.HasSuffix(p, "*") {
				g.prefixes = append(g.prefixes, strings.TrimSuffix(p, "*"))
				continue
			}
			g.exact[p] = struct{}{}
		}
		c.roles[role] = g
	}
	return c
}

func (c *Checker) Has(role, perm string) bool {
	g, ok := c.roles[role]
	return ok && g.has(perm)
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}
