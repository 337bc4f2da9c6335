package documents

import (
	"encoding/json"
	"strings"
)

// TransitionKind describes what a successful transition did.
type TransitionKind string

const (
	KindAdvance  TransitionKind = "advance"
	KindFail     TransitionKind = "fail"
	KindRetry    TransitionKind = "retry"
	KindRepeat   TransitionKind = "repeat"
	KindInsights TransitionKind = "insights"
)

// TransitionFields are the optional columns a collaborator supplies with a
// status change. Nil means "not supplied".
type TransitionFields struct {
	PDFFileName       *string `json:"pdf_file_name,omitempty"`
	PDFCreatedAt      *string `json:"pdf_created_at,omitempty"`
	TextFileName      *string `json:"text_file_name,omitempty"`
	TextFileCreatedAt *string `json:"text_file_created_at,omitempty"`
	InsightsFileName  *string `json:"insights_file_name,omitempty"`
	InsightsCreatedAt *string `json:"insights_created_at,omitempty"`
	ErrorMessage      *string `json:"error_message,omitempty"`
}

// JSON renders the supplied fields for the audit trail.
func (f TransitionFields) JSON() []byte {
	b, err := json.Marshal(f)
	if err != nil {
		return []byte("{}")
	}
	return b
}

type stage int

const (
	stagePDF stage = iota
	stageText
	stageInsights
	stageError
)

type fieldSpec struct {
	name      string
	stage     stage
	timestamp bool
	get       func(*TransitionFields) *string
	slot      func(*Document) **string
}

var fieldSpecs = []fieldSpec{
	{"pdf_file_name", stagePDF, false, func(f *TransitionFields) *string { return f.PDFFileName }, func(d *Document) **string { return &d.PDFFileName }},
	{"pdf_created_at", stagePDF, true, func(f *TransitionFields) *string { return f.PDFCreatedAt }, func(d *Document) **string { return &d.PDFCreatedAt }},
	{"text_file_name", stageText, false, func(f *TransitionFields) *string { return f.TextFileName }, func(d *Document) **string { return &d.TextFileName }},
	{"text_file_created_at", stageText, true, func(f *TransitionFields) *string { return f.TextFileCreatedAt }, func(d *Document) **string { return &d.TextFileCreatedAt }},
	{"insights_file_name", stageInsights, false, func(f *TransitionFields) *string { return f.InsightsFileName }, func(d *Document) **string { return &d.InsightsFileName }},
	{"insights_created_at", stageInsights, true, func(f *TransitionFields) *string { return f.InsightsCreatedAt }, func(d *Document) **string { return &d.InsightsCreatedAt }},
	{"error_message", stageError, false, func(f *TransitionFields) *string { return f.ErrorMessage }, func(d *Document) **string { return &d.ErrorMessage }},
}

var transitions = map[ProcessingStatus][]ProcessingStatus{
	StatusDiscovered: {StatusDownloaded, StatusFailed},
	StatusDownloaded: {StatusParsed, StatusFailed},
	StatusParsed:     {StatusFailed},
	StatusFailed:     {StatusDiscovered, StatusDownloaded, StatusParsed},
}

// CanTransition reports whether from -> to is an edge of the state machine.
// Re-applying the current status is handled separately by Plan.
func CanTransition(from, to ProcessingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition is a validated state change ready to be persisted.
type Transition struct {
	From   ProcessingStatus
	To     ProcessingStatus
	Kind   TransitionKind
	Fields TransitionFields
	Next   *Document
}

type stageRules struct {
	required []stage
	optional []stage
}

func rulesFor(to ProcessingStatus, kind TransitionKind) stageRules {
	switch {
	case kind == KindInsights:
		return stageRules{required: []stage{stageInsights}, optional: []stage{stagePDF, stageText}}
	case to == StatusDownloaded:
		return stageRules{required: []stage{stagePDF}}
	case to == StatusParsed:
		return stageRules{required: []stage{stageText}, optional: []stage{stagePDF, stageInsights}}
	case to == StatusFailed:
		return stageRules{required: []stage{stageError}}
	default:
		return stageRules{}
	}
}

// Plan validates moving current to status to with the supplied fields and
// returns the resulting record. UpdatedAt is left for the caller to stamp.
//
// Optional columns always end up consistent with the new status: entering
// discovered clears every file column, entering downloaded clears the text
// and insight columns, and leaving failed clears error_message.
func Plan(current *Document, to ProcessingStatus, f TransitionFields) (*Transition, error) {
	const op = "transition"
	if !to.Valid() {
		return nil, Errorf(CodeInvalidStatus, op, "unknown processing_status %q", string(to))
	}
	if current == nil {
		return nil, Errorf(CodeNotFound, op, "document not found")
	}
	from := current.ProcessingStatus
	if !from.Valid() {
		return nil, Errorf(CodeInvalidStatus, op, "stored processing_status %q is not recognized", string(from))
	}

	kind := classify(from, to, &f)
	if from != to && !CanTransition(from, to) {
		return nil, Errorf(CodeIllegalTransition, op, "cannot move %s from %s to %s", current.TranscriptUUID, from, to)
	}
	if err := validateFields(to, kind, &f); err != nil {
		return nil, err
	}

	next := current.Clone()
	switch kind {
	case KindRepeat:
		for _, spec := range fieldSpecs {
			if v := spec.get(&f); v != nil && !sameValue(*spec.slot(next), v) {
				return nil, Errorf(CodeIllegalTransition, op, "%s is already %s with a different %s", current.TranscriptUUID, to, spec.name)
			}
		}
	case KindInsights:
		for _, spec := range fieldSpecs {
			v := spec.get(&f)
			if v == nil {
				continue
			}
			if spec.stage == stageInsights {
				*spec.slot(next) = trimmed(v)
				continue
			}
			if !sameValue(*spec.slot(next), v) {
				return nil, Errorf(CodeIllegalTransition, op, "insights update cannot change %s", spec.name)
			}
		}
	default:
		applyStages(next, to, &f)
		if to == StatusParsed && (next.PDFFileName == nil || next.PDFCreatedAt == nil) {
			return nil, Errorf(CodeConstraintViolation, op, "%s has no downloaded pdf; parsed requires pdf_file_name and pdf_created_at", current.TranscriptUUID)
		}
		next.ProcessingStatus = to
		if to == StatusFailed {
			next.ErrorMessage = trimmed(f.ErrorMessage)
		} else {
			next.ErrorMessage = nil
		}
	}
	return &Transition{From: from, To: to, Kind: kind, Fields: f, Next: next}, nil
}

// PlanInsights is the parsed-state sub-update that records extracted insights.
func PlanInsights(current *Document, fileName, createdAt string) (*Transition, error) {
	if current != nil && current.ProcessingStatus != StatusParsed {
		return nil, Errorf(CodeIllegalTransition, "record_insights", "%s is %s; insights require parsed", current.TranscriptUUID, current.ProcessingStatus)
	}
	return Plan(current, StatusParsed, TransitionFields{InsightsFileName: &fileName, InsightsCreatedAt: &createdAt})
}

func classify(from, to ProcessingStatus, f *TransitionFields) TransitionKind {
	switch {
	case from == to && to == StatusParsed && (f.InsightsFileName != nil || f.InsightsCreatedAt != nil):
		return KindInsights
	case from == to:
		return KindRepeat
	case to == StatusFailed:
		return KindFail
	case from == StatusFailed:
		return KindRetry
	default:
		return KindAdvance
	}
}

func validateFields(to ProcessingStatus, kind TransitionKind, f *TransitionFields) error {
	const op = "transition"
	rules := rulesFor(to, kind)
	allowed := map[stage]bool{}
	for _, s := range rules.required {
		allowed[s] = true
	}
	for _, s := range rules.optional {
		allowed[s] = true
	}

	present := map[stage]int{}
	for _, spec := range fieldSpecs {
		v := spec.get(f)
		if v == nil {
			continue
		}
		if !allowed[spec.stage] {
			return Errorf(CodeConstraintViolation, op, "%s does not apply to a transition into %s", spec.name, to)
		}
		if strings.TrimSpace(*v) == "" {
			return Errorf(CodeConstraintViolation, op, "%s must not be empty", spec.name)
		}
		if spec.timestamp {
			if _, ok := ParseTimestamp(*v); !ok {
				return Errorf(CodeConstraintViolation, op, "%s %q is not a timestamp", spec.name, *v)
			}
		}
		present[spec.stage]++
	}

	for _, s := range rules.required {
		if present[s] < stageWidth(s) {
			return Errorf(CodeConstraintViolation, op, "transition into %s requires %s", to, stageFieldNames(s))
		}
	}
	for _, s := range rules.optional {
		if n := present[s]; n > 0 && n < stageWidth(s) {
			return Errorf(CodeConstraintViolation, op, "%s must be supplied together", stageFieldNames(s))
		}
	}
	return nil
}

func applyStages(next *Document, to ProcessingStatus, f *TransitionFields) {
	keep := map[stage]bool{}
	switch to {
	case StatusDiscovered:
	case StatusDownloaded:
		keep[stagePDF] = true
	case StatusParsed:
		keep[stagePDF] = true
		keep[stageText] = true
		keep[stageInsights] = f.InsightsFileName != nil
	case StatusFailed:
		keep[stagePDF], keep[stageText], keep[stageInsights] = true, true, true
	}
	for _, spec := range fieldSpecs {
		if spec.stage == stageError {
			continue
		}
		slot := spec.slot(next)
		if !keep[spec.stage] {
			*slot = nil
			continue
		}
		if v := spec.get(f); v != nil {
			*slot = trimmed(v)
		}
	}
}

func stageWidth(s stage) int {
	n := 0
	for _, spec := range fieldSpecs {
		if spec.stage == s {
			n++
		}
	}
	return n
}

func stageFieldNames(s stage) string {
	var names []string
	for _, spec := range fieldSpecs {
		if spec.stage == s {
			names = append(names, spec.name)
		}
	}
	return strings.Join(names, " and ")
}

func sameValue(stored, supplied *string) bool {
	if stored == nil {
		return false
	}
	return strings.TrimSpace(*stored) == strings.TrimSpace(*supplied)
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}
