package apk

// Package identifies one installed or installable package unit.
// Name is the join key between the installed set and the upgrade plan;
// Version is the discriminator for change detection.
type Package struct {
	Name    string `json:"name" yaml:"name"`
	Origin  string `json:"origin" yaml:"origin"`
	Version string `json:"version" yaml:"version"`
}

// Same reports whether two package identities refer to the same unit at
// the same version. Nil pointers compare equal only to nil.
func (p *Package) Same(o *Package) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.Name == o.Name && p.Version == o.Version
}

// Change pairs the installed identity of a package with the identity the
// solver selected for it. Old is nil for a package newly pulled in by the
// upgrade; New is nil for a package the upgrade removes.
type Change struct {
	Old *Package
	New *Package
}

// Real reports whether the change actually alters the installed set.
// Pairs the solver enumerates without effect (old == new by identity)
// are not real and must not be reported.
func (c Change) Real() bool {
	return !c.Old.Same(c.New)
}

// Changeset is the ordered result of one solve operation. Order follows
// the solver's emission order and is not guaranteed stable across runs.
type Changeset struct {
	Changes []Change
}
