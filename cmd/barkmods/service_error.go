// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"barkmods-cli/internal/catalog"
	"barkmods-cli/internal/issue"
	"barkmods-cli/internal/scripthost"
	"barkmods-cli/pkg/modpkg"
)

// ServiceError is an error that carries an issue catalog entry to render
// before the error itself. Always create via newServiceError.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID is the issue catalog ID for rendering help text.
	IssueID issue.Id
}

// newServiceError creates a ServiceError with a nil-Err panic guard.
func newServiceError(err error, issueID issue.Id) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{Err: err, IssueID: issueID}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// fail renders the issue help text for err, when one applies, and returns
// err for the RunE handler.
func (a *App) fail(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if !errors.As(err, &svcErr) {
		if id := classifyError(err); id != 0 {
			svcErr = newServiceError(err, id)
			err = svcErr
		}
	}
	renderServiceError(a.stderr, svcErr, a.markdownStyle, a.logger("issue"))

	var actionable *issue.ActionableError
	if errors.As(err, &actionable) {
		fmt.Fprint(a.stderr, actionable.Hints(a.verbose))
	}
	return err
}

// classifyError maps domain errors to issue catalog IDs. Zero means no issue
// text applies.
func classifyError(err error) issue.Id {
	var (
		openErr      *modpkg.OpenError
		malformedErr *modpkg.MalformedError
		buildErr     *modpkg.BuildError
		scriptErr    *scripthost.ScriptError
	)
	switch {
	case errors.As(err, &openErr) && openErr.Kind == modpkg.NotAnArchive:
		return issue.PackageNotArchiveId
	case errors.As(err, &malformedErr):
		if malformedErr.Reason == modpkg.InvalidManifest {
			return issue.ManifestInvalidId
		}
		return issue.PackageMalformedId
	case errors.As(err, &buildErr) && buildErr.Kind == modpkg.TooManyAttachments,
		errors.Is(err, modpkg.ErrAttachmentLimit):
		return issue.TooManyAttachmentsId
	case errors.As(err, &scriptErr):
		return issue.ScriptFailedId
	case errors.Is(err, catalog.ErrWrongPassword):
		return issue.WrongPasswordId
	case errors.Is(err, catalog.ErrBusy):
		return issue.CatalogUnavailableId
	case errors.Is(err, os.ErrPermission):
		return issue.PermissionDeniedId
	default:
		return 0
	}
}

// renderServiceError writes the issue help section for svcErr.
func renderServiceError(stderr io.Writer, svcErr *ServiceError, style string, logger *log.Logger) {
	if svcErr == nil || svcErr.IssueID == 0 {
		return
	}
	entry := issue.Get(svcErr.IssueID)
	if entry == nil {
		return
	}
	rendered, err := entry.Render(style)
	if err != nil {
		logger.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "err", err)
		return
	}
	fmt.Fprint(stderr, rendered)
}
