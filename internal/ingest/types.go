// Package ingest implements the contact-file ingestion pipeline: delimiter
// detection, column-role inference, field validation/normalization, row
// classification, and chunked canonical export.
// This package has no UI or storage dependencies and can be used by any
// frontend.
package ingest

// Role identifies the semantic meaning a column can carry.
type Role int

const (
	RoleName Role = iota
	RolePhone
	RoleEmail
	RolePoints
)

// roles in resolution order. Name first so first-come-first-served header
// claims are stable.
var allRoles = []Role{RoleName, RolePhone, RoleEmail, RolePoints}

func (r Role) String() string {
	switch r {
	case RoleName:
		return "name"
	case RolePhone:
		return "phone"
	case RoleEmail:
		return "email"
	case RolePoints:
		return "points"
	default:
		return "unknown"
	}
}

// Unmapped marks a role that resolved to no column.
const Unmapped = -1

// RoleMap maps each semantic role to a zero-based column index, or Unmapped.
type RoleMap struct {
	Name   int `json:"name"`
	Phone  int `json:"phone"`
	Email  int `json:"email"`
	Points int `json:"points"`
}

// NewRoleMap returns a RoleMap with every role unmapped.
func NewRoleMap() RoleMap {
	return RoleMap{Name: Unmapped, Phone: Unmapped, Email: Unmapped, Points: Unmapped}
}

// Complete reports whether the two mandatory roles resolved to a column.
// Name and Phone must both be mapped before classification output can be
// considered trustworthy.
func (m RoleMap) Complete() bool {
	return m.Name >= 0 && m.Phone >= 0
}

// Empty reports whether no role resolved at all.
func (m RoleMap) Empty() bool {
	return m.Name < 0 && m.Phone < 0 && m.Email < 0 && m.Points < 0
}

func (m *RoleMap) setIndex(r Role, idx int) {
	switch r {
	case RoleName:
		m.Name = idx
	case RolePhone:
		m.Phone = idx
	case RoleEmail:
		m.Email = idx
	case RolePoints:
		m.Points = idx
	}
}

// claimed reports whether idx is already bound to any role.
func (m RoleMap) claimed(idx int) bool {
	if idx < 0 {
		return false
	}
	return m.Name == idx || m.Phone == idx || m.Email == idx || m.Points == idx
}

// MappingSource records how the active RoleMap was resolved.
type MappingSource string

const (
	SourceHeader  MappingSource = "header"
	SourceContent MappingSource = "content"
	SourceManual  MappingSource = "manual"
)

// Override is a manual column mapping supplied by an operator. When present
// it fully replaces automatic header/content inference for the run.
type Override struct {
	Roles     RoleMap `json:"roles"`
	HasHeader bool    `json:"hasHeader"`
}

// RejectReason tags why a row was rejected or a field was sanitized.
type RejectReason string

const (
	// Terminal row rejections.
	ReasonNoNumber      RejectReason = "no_valid_number"
	ReasonInvalidPhone  RejectReason = "invalid_telefone"
	ReasonInvalidFormat RejectReason = "invalid_format"

	// Field sanitizations. These never reject the row.
	ReasonInvalidEmail  RejectReason = "invalid_email"
	ReasonInvalidPoints RejectReason = "invalid_points"
)

// Record is one accepted contact. Only these four canonical columns are ever
// populated; the remaining ten output columns stay empty for downstream
// schema compatibility.
type Record struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email"`
	Points string `json:"points"`
}

// Rejected is one rejected row, with the raw field values echoed for audit.
// Line is 1-based and counts the header row when one is present.
type Rejected struct {
	Line   int          `json:"line"`
	Reason RejectReason `json:"reason"`
	Name   string       `json:"name"`
	Phone  string       `json:"phone"`
	Email  string       `json:"email"`
	Points string       `json:"points"`
}

// Report aggregates per-run counts. It is recomputed every run, never stored
// by the pipeline. Invariant: TotalRead == TotalValid + sum(Rejections).
type Report struct {
	TotalRead  int                  `json:"totalRead"`
	TotalValid int                  `json:"totalValid"`
	Rejections map[RejectReason]int `json:"rejections"`
	Sanitized  map[RejectReason]int `json:"sanitized"`
}

// DelimiterTrial records the table shape one candidate delimiter produced.
type DelimiterTrial struct {
	Delimiter string `json:"delimiter"`
	Rows      int    `json:"rows"`
	Cols      int    `json:"cols"`
}

// Confidence is the normalized margin between the two best candidate columns
// per role, in [0,1]. Zero when the top score is zero or inference never ran.
type Confidence struct {
	Name   float64 `json:"name"`
	Phone  float64 `json:"phone"`
	Email  float64 `json:"email"`
	Points float64 `json:"points"`
}

// RowDetail is per-row validation detail for the debug surface. Only a
// bounded sample of rows is reported.
type RowDetail struct {
	Line     int          `json:"line"`
	Accepted bool         `json:"accepted"`
	Reason   RejectReason `json:"reason,omitempty"`
	Phone    string       `json:"phone"`
}

// Diagnostics is the debug surface for one run. It is returned by value
// alongside the report so repeated runs stay independent and testable.
type Diagnostics struct {
	Delimiter      string           `json:"delimiter"`
	Trials         []DelimiterTrial `json:"trials"`
	HeaderDetected bool             `json:"headerDetected"`
	Header         []string         `json:"header,omitempty"`
	Roles          RoleMap          `json:"roles"`
	Source         MappingSource    `json:"source"`
	Scores         *ScoreTable      `json:"scores,omitempty"`
	Confidence     Confidence       `json:"confidence"`
	ReviewNeeded   bool             `json:"reviewNeeded"`
	ReviewReasons  []string         `json:"reviewReasons,omitempty"`
	RowSample      []RowDetail      `json:"rowSample,omitempty"`
}

// Result is the complete outcome of one ingestion run.
type Result struct {
	Records     []Record    `json:"records"`
	Rejected    []Rejected  `json:"rejected"`
	Report      Report      `json:"report"`
	Diagnostics Diagnostics `json:"diagnostics"`
}
