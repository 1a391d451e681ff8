package ensembl

import (
	"fmt"
)

// FailureKind classifies why a fetch did not produce a body.
type FailureKind string

const (
	FailureTransport    FailureKind = "transport"
	FailureTimeout      FailureKind = "timeout"
	FailureProtocol     FailureKind = "protocol"
	FailureUnclassified FailureKind = "unclassified"
)

// Failure describes a failed fetch for one gene.
type Failure struct {
	Kind    FailureKind
	GeneID  string
	Message string
	// StatusCode is set for FailureProtocol.
	StatusCode int
	Err        error
}

func (f *Failure) Error() string {
	if f == nil {
		return "ensembl fetch failure"
	}
	return fmt.Sprintf("%s failure for gene %s: %s", f.Kind, f.GeneID, f.Message)
}

func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

// Outcome is the result of one fetch: a decoded body or a failure, never both.
type Outcome struct {
	body    Body
	failure *Failure
}

// Succeeded returns a successful outcome.
func Succeeded(body Body) Outcome {
	return Outcome{body: body}
}

// Failed returns a failed outcome. A nil failure is replaced by an
// unclassified one so the outcome stays tagged as failed.
func Failed(f *Failure) Outcome {
	if f == nil {
		f = &Failure{Kind: FailureUnclassified, Message: "unknown failure"}
	}
	return Outcome{failure: f}
}

// OK reports whether the fetch produced a body.
func (o Outcome) OK() bool {
	return o.failure == nil
}

// Body returns the decoded body and true on success.
func (o Outcome) Body() (Body, bool) {
	if o.failure != nil {
		return Body{}, false
	}
	return o.body, true
}

// Failure returns the failure, or nil on success.
func (o Outcome) Failure() *Failure {
	return o.failure
}
