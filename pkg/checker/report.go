package checker

import (
	"github.com/alpinemetrics/apkmon/pkg/apk"
	"github.com/alpinemetrics/apkmon/pkg/header"
	"github.com/alpinemetrics/apkmon/pkg/osrelease"
)

// APIVersion is the schema version of the upgrade report resource.
const APIVersion = "apkmon/v1"

// ChangeRecord is one reportable package change, serialized with the
// four short keys consumers of the metric metadata expect.
type ChangeRecord struct {
	Name       string `json:"p" yaml:"p"`
	Origin     string `json:"o" yaml:"o"`
	OldVersion string `json:"v" yaml:"v"`
	NewVersion string `json:"w" yaml:"w"`
}

// Report is the full result of one read cycle: the change count, the
// change list in solver emission order, and the OS identity the host
// reported at read time.
type Report struct {
	header.Header `yaml:",inline"`

	OS       osrelease.Identity `json:"os" yaml:"os"`
	Count    int                `json:"count" yaml:"count"`
	Packages []ChangeRecord     `json:"packages" yaml:"packages"`
}

// diffChangeset filters the solver's change list down to real changes,
// preserving emission order. Identity fields come from the old package
// when present (matching the installed unit being replaced), falling
// back to the new package for fresh installs.
func diffChangeset(cs *apk.Changeset) []ChangeRecord {
	records := make([]ChangeRecord, 0, len(cs.Changes))

	for _, ch := range cs.Changes {
		if !ch.Real() {
			continue
		}

		var rec ChangeRecord
		switch {
		case ch.Old != nil:
			rec.Name = ch.Old.Name
			rec.Origin = ch.Old.Origin
			rec.OldVersion = ch.Old.Version
		case ch.New != nil:
			rec.Name = ch.New.Name
			rec.Origin = ch.New.Origin
		}
		if ch.New != nil {
			rec.NewVersion = ch.New.Version
		}

		records = append(records, rec)
	}

	return records
}
