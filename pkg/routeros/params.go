package routeros

import (
	"fmt"
	"strings"

	pkgerrors "github.com/cuzonet/cuzonet-backend/pkg/errors"
	"github.com/cuzonet/cuzonet-backend/pkg/sanitize"
)

// QueueCreateParams contains the fields required to create a simple queue.
type QueueCreateParams struct {
	Name         string
	Target       string
	DownloadRate string
	UploadRate   string
	Comment      string
}

func (p QueueCreateParams) toPayload() (map[string]string, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "queue name is required")
	}
	if strings.TrimSpace(p.Target) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "queue target is required")
	}
	if strings.TrimSpace(p.DownloadRate) == "" || strings.TrimSpace(p.UploadRate) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "both upload and download rates are required")
	}
	return map[string]string{
		"name":      sanitize.Text(p.Name),
		"target":    normalizeTarget(p.Target),
		"max-limit": maxLimit(p.UploadRate, p.DownloadRate),
		"comment":   sanitize.Text(p.Comment),
	}, nil
}

// QueueUpdate is an explicit partial-update field set. Only non-nil fields are
// sent to the device; the rate pair must be supplied together or not at all.
type QueueUpdate struct {
	Name         *string
	Target       *string
	DownloadRate *string
	UploadRate   *string
	Disabled     *bool
	Comment      *string
}

// Empty reports whether the update carries no fields.
func (u QueueUpdate) Empty() bool {
	return u.Name == nil && u.Target == nil && u.DownloadRate == nil &&
		u.UploadRate == nil && u.Disabled == nil && u.Comment == nil
}

func (u QueueUpdate) toPayload() (map[string]string, error) {
	if u.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "queue update carries no fields")
	}
	if (u.DownloadRate == nil) != (u.UploadRate == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rate pair must be updated together")
	}

	payload := map[string]string{}
	if u.Name != nil {
		payload["name"] = sanitize.Text(*u.Name)
	}
	if u.Target != nil {
		payload["target"] = normalizeTarget(*u.Target)
	}
	if u.DownloadRate != nil {
		payload["max-limit"] = maxLimit(*u.UploadRate, *u.DownloadRate)
	}
	if u.Disabled != nil {
		if *u.Disabled {
			payload["disabled"] = "yes"
		} else {
			payload["disabled"] = "no"
		}
	}
	if u.Comment != nil {
		payload["comment"] = sanitize.Text(*u.Comment)
	}
	return payload, nil
}

// String returns a pointer to s, for building QueueUpdate literals.
func String(s string) *string {
	return &s
}

// Bool returns a pointer to b, for building QueueUpdate literals.
func Bool(b bool) *bool {
	return &b
}

// normalizeTarget appends the single-host network suffix when absent.
func normalizeTarget(address string) string {
	trimmed := strings.TrimSpace(address)
	if strings.Contains(trimmed, "/") {
		return trimmed
	}
	return trimmed + "/32"
}

// maxLimit renders the device's combined rate field, upload first.
func maxLimit(upload, download string) string {
	return fmt.Sprintf("%s/%s", strings.TrimSpace(upload), strings.TrimSpace(download))
}
