package importer

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core"
)

const maxReportedErrors = 50

// ComposeReport builds the batch summary email sent to the uploading staff
// after a committed import.
func ComposeReport(domain Domain, filename string, summary Summary, to ...mail.Address) *core.EmailMessage {
	body := new(strings.Builder)
	fmt.Fprintf(body, "Import of %q (%s) completed %s.\n\n", filename, domain, time.Now().UTC().Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(body, "Inserted: %d\n", summary.Inserted)
	fmt.Fprintf(body, "Updated:  %d\n", summary.Updated)
	fmt.Fprintf(body, "Skipped:  %d\n", summary.Skipped)
	fmt.Fprintf(body, "Errors:   %d\n", summary.Errors)

	if len(summary.ErrorDetails) > 0 {
		fmt.Fprint(body, "\nRow errors:\n")
		details := summary.ErrorDetails
		if len(details) > maxReportedErrors {
			details = details[:maxReportedErrors]
		}
		for _, d := range details {
			fmt.Fprintf(body, "  %s\n", d)
		}
		if n := len(summary.ErrorDetails) - maxReportedErrors; n > 0 {
			fmt.Fprintf(body, "  ... and %d more\n", n)
		}
	}

	return &core.EmailMessage{
		To:      to,
		Subject: fmt.Sprintf("%s import report: %s", titleCase(string(domain)), filename),
		BodyStr: body.String(),
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// SendReport emails the summary of a committed batch to the given staff
// addresses. No-op when the service has no mailer or there are no recipients.
func (svc *Service) SendReport(domain Domain, filename string, summary Summary, to ...mail.Address) {
	if svc.mailSvc == nil || len(to) == 0 {
		return
	}
	svc.mailSvc.SendMessages(ComposeReport(domain, filename, summary, to...))
}
