package analyses

import "errors"

var ErrNotFound = errors.New("not found")

// Caller-facing messages for rejected submissions.
const (
	MsgUnsupportedType    = "Please upload a PDF."
	MsgJobDescriptionReq  = "job_description is required"
	MsgFileRequired       = "file is required"
	MsgDocumentParse      = "Could not parse the uploaded document."
	MsgNoExtractableText  = "Could not extract text from PDF (is it scanned/image-only?)."
	MsgInvalidAnalysisID  = "Invalid analysis_id"
	MsgNotFound           = "Not found"
	defaultResumeFilename = "resume.pdf"
)

// InputError is a client-side problem with a submission.
type InputError struct {
	Message string
	Err     error
}

func (e *InputError) Error() string {
	return e.Message
}

func (e *InputError) Unwrap() error {
	return e.Err
}

func inputError(msg string, err error) *InputError {
	return &InputError{Message: msg, Err: err}
}
