package security

import (
	"encoding/json"
	"fmt"
)

// PackageType is the kind of WordPress package identified from its main file.
type PackageType string

const (
	PackagePlugin  PackageType = "plugin"
	PackageTheme   PackageType = "theme"
	PackageUnknown PackageType = ""
)

// findings is everything the extractors gathered for one package.
type findings struct {
	directory         string
	packageType       PackageType
	mainFile          string
	securityMDPath    string
	securityTXTPath   string
	hasReadmeSecurity bool
	observations      []Observation
}

// Result is the outcome of one scan. It is built once and never changes; all
// accessors return copies.
type Result struct {
	success           bool
	directory         string
	packageType       PackageType
	mainFile          string
	securityMDPath    string
	securityTXTPath   string
	hasReadmeSecurity bool
	observations      []Observation
	verdict           Verdict
	issues            []string
}

// Summary is the serializable view of a Result.
type Summary struct {
	Success           bool                  `json:"success"`
	Directory         string                `json:"directory"`
	PackageType       string                `json:"package_type,omitempty"`
	MainFile          string                `json:"main_file,omitempty"`
	HasSecurityHeader bool                  `json:"has_security_header"`
	HasSecurityMD     bool                  `json:"has_security_md"`
	SecurityMDPath    string                `json:"security_md_path,omitempty"`
	HasSecurityTXT    bool                  `json:"has_security_txt"`
	SecurityTXTPath   string                `json:"security_txt_path,omitempty"`
	HasReadmeSecurity bool                  `json:"has_readme_security"`
	Contacts          map[SourceKind]string `json:"contacts"`
	PrimaryContact    string                `json:"primary_contact,omitempty"`
	Consistent        bool                  `json:"consistent"`
	DistinctContacts  []string              `json:"distinct_contacts"`
	Passes            bool                  `json:"passes"`
	Issues            []string              `json:"issues"`
}

func newResult(f findings) *Result {
	observations := sortByPriority(f.observations)
	r := &Result{
		success:           true,
		directory:         f.directory,
		packageType:       f.packageType,
		mainFile:          f.mainFile,
		securityMDPath:    f.securityMDPath,
		securityTXTPath:   f.securityTXTPath,
		hasReadmeSecurity: f.hasReadmeSecurity,
		observations:      observations,
		verdict:           Reconcile(observations),
	}
	r.issues = r.assembleIssues()
	return r
}

func (r *Result) assembleIssues() []string {
	issues := []string{}

	if r.mainFile == "" {
		issues = append(issues, "no main plugin or theme file found")
	} else if !r.HasSecurityHeader() {
		issues = append(issues, fmt.Sprintf("no Security header found in %s", r.mainFile))
	}

	if !r.HasSecurityMD() && !r.HasSecurityTXT() {
		issues = append(issues, "no security.md or security.txt file found")
	}
	if r.HasSecurityMD() {
		if _, ok := r.Contact(SourceSecurityMD); !ok {
			issues = append(issues, fmt.Sprintf("security.md found at %s but no contact could be extracted", r.securityMDPath))
		}
	}
	if r.HasSecurityTXT() {
		if _, ok := r.Contact(SourceSecurityTXT); !ok {
			issues = append(issues, fmt.Sprintf("security.txt found at %s but no Contact: field could be extracted", r.securityTXTPath))
		}
	}

	if !r.verdict.Consistent && len(r.observations) > 1 {
		issues = append(issues, "security contacts are inconsistent: "+describeMismatch(r.observations))
	}

	return issues
}

// Success reports whether the scan ran to completion.
func (r *Result) Success() bool { return r.success }

// Directory is the package root that was scanned.
func (r *Result) Directory() string { return r.directory }

// PackageType is the identified package kind, if any.
func (r *Result) PackageType() PackageType { return r.packageType }

// HasPackageType reports whether the main file identified the package as a
// plugin or a theme.
func (r *Result) HasPackageType() bool { return r.packageType != PackageUnknown }

// MainFile is the main file path relative to the package root.
func (r *Result) MainFile() string { return r.mainFile }

// HasSecurityHeader reports whether the main file declares a Security contact.
func (r *Result) HasSecurityHeader() bool {
	_, ok := r.Contact(SourceHeader)
	return ok
}

// HasSecurityMD reports whether a security.md candidate exists.
func (r *Result) HasSecurityMD() bool { return r.securityMDPath != "" }

// HasSecurityTXT reports whether a security.txt candidate exists.
func (r *Result) HasSecurityTXT() bool { return r.securityTXTPath != "" }

// HasSecurityFile reports whether either policy file exists.
func (r *Result) HasSecurityFile() bool { return r.HasSecurityMD() || r.HasSecurityTXT() }

// HasReadmeSecurity reports whether the readme has a Security section.
func (r *Result) HasReadmeSecurity() bool { return r.hasReadmeSecurity }

// Contact returns the raw contact extracted from source.
func (r *Result) Contact(source SourceKind) (string, bool) {
	for _, obs := range r.observations {
		if obs.Source == source {
			return obs.Raw, true
		}
	}
	return "", false
}

// Observations returns the extracted contacts in source priority order.
func (r *Result) Observations() []Observation {
	out := make([]Observation, len(r.observations))
	copy(out, r.observations)
	return out
}

// Verdict returns a copy of the consistency verdict over all observations.
func (r *Result) Verdict() Verdict {
	distinct := make([]string, len(r.verdict.Distinct))
	copy(distinct, r.verdict.Distinct)
	return Verdict{Consistent: r.verdict.Consistent, Distinct: distinct}
}

// IsConsistent reports whether at most one distinct normalized contact was seen.
func (r *Result) IsConsistent() bool { return r.verdict.Consistent }

// PrimaryContact picks the contact from the highest priority source: header,
// security.md, security.txt, then readme.
func (r *Result) PrimaryContact() (string, bool) {
	if len(r.observations) == 0 {
		return "", false
	}
	return r.observations[0].Raw, true
}

// Passes is the policy verdict: a header contact is declared and no source
// disagrees with it. A missing policy file is reported but does not fail.
func (r *Result) Passes() bool {
	return r.HasSecurityHeader() && r.IsConsistent()
}

// Issues returns the advisory findings in a stable order.
func (r *Result) Issues() []string {
	return append([]string{}, r.issues...)
}

// Summary returns a serializable snapshot of the result.
func (r *Result) Summary() Summary {
	contacts := make(map[SourceKind]string, len(r.observations))
	for _, obs := range r.observations {
		contacts[obs.Source] = obs.Raw
	}
	primary, _ := r.PrimaryContact()

	return Summary{
		Success:           r.success,
		Directory:         r.directory,
		PackageType:       string(r.packageType),
		MainFile:          r.mainFile,
		HasSecurityHeader: r.HasSecurityHeader(),
		HasSecurityMD:     r.HasSecurityMD(),
		SecurityMDPath:    r.securityMDPath,
		HasSecurityTXT:    r.HasSecurityTXT(),
		SecurityTXTPath:   r.securityTXTPath,
		HasReadmeSecurity: r.hasReadmeSecurity,
		Contacts:          contacts,
		PrimaryContact:    primary,
		Consistent:        r.verdict.Consistent,
		DistinctContacts:  r.Verdict().Distinct,
		Passes:            r.Passes(),
		Issues:            r.Issues(),
	}
}

// MarshalJSON encodes the result as its Summary.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Summary())
}
