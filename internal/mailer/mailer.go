// Package mailer sends the new-files notification through Resend.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/resend/resend-go/v2"

	"github.com/mateeyas/calebmateo-filesync/internal/store"
)

const (
	fromAddress    = "Calebmateo.com <noreply@calebmateo.com>"
	opsAddress     = "logs@mskdgrf.com"
	recentAlbumURL = "https://www.calebmateo.com/app/albums/recent-photos"
)

var emojis = []string{"📸", "🎥", "🖼️", "🏞️", "🌄", "🌅", "🌠", "🎞️", "📽️", "🖼️", "🎉", "🥳", "🎊", "☀️", "🌞"}

// sender is the slice of the Resend client the mailer uses; tests swap in a
// fake.
type sender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type Mailer struct {
	emails sender
	logger *slog.Logger
}

func New(apiKey string, logger *slog.Logger) *Mailer {
	client := resend.NewClient(apiKey)
	return &Mailer{emails: client.Emails, logger: logger}
}

// Summary is the per-recipient outcome count of one notification batch.
type Summary struct {
	Sent   int
	Failed int
}

// SendNewFiles notifies every recipient that fileCount new files landed.
// Recipients are emailed concurrently and one failed send never blocks the
// others; only a batch where every send failed is reported as an error.
func (m *Mailer) SendNewFiles(ctx context.Context, recipients []store.Recipient, fileCount int, stats []store.UploaderStats) (Summary, error) {
	subjectEmojis := pickEmojis()
	headerEmojis := pickEmojis()
	signatureEmojis := pickEmojis()

	var (
		mu       sync.Mutex
		summary  Summary
		failures *multierror.Error
		wg       sync.WaitGroup
	)

	for _, recipient := range recipients {
		recipient := recipient
		wg.Add(1)
		go func() {
			defer wg.Done()

			sent, err := m.emails.SendWithContext(ctx, &resend.SendEmailRequest{
				From:    fromAddress,
				To:      []string{recipient.Email},
				Subject: "New files uploaded " + subjectEmojis,
				Html:    newFilesBody(recipient.Name, fileCount, headerEmojis, signatureEmojis, stats),
			})
			if err != nil {
				m.logger.Error("failed to send notification email",
					"recipient", recipient.Email, "error", err.Error())
				m.sendOpsError(ctx, err, fmt.Sprintf("Failed to send email to %s", recipient.Email))
				mu.Lock()
				summary.Failed++
				failures = multierror.Append(failures, fmt.Errorf("send to %s: %w", recipient.Email, err))
				mu.Unlock()
				return
			}

			m.logger.Info("notification email sent",
				"recipient", recipient.Email, "email_id", sent.Id)
			mu.Lock()
			summary.Sent++
			mu.Unlock()
		}()
	}
	wg.Wait()

	m.logger.Info("email notification summary",
		"sent", summary.Sent, "failed", summary.Failed)

	if summary.Sent == 0 && summary.Failed > 0 {
		err := fmt.Errorf("all email notifications failed to send: %w", failures.ErrorOrNil())
		m.sendOpsError(ctx, err, fmt.Sprintf("All %d email notifications failed", summary.Failed))
		return summary, err
	}
	return summary, nil
}

// sendOpsError reports a failure to the fixed operations address. It only
// logs when even that send fails.
func (m *Mailer) sendOpsError(ctx context.Context, cause error, detail string) {
	_, err := m.emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    fromAddress,
		To:      []string{opsAddress},
		Subject: "⚠️ Email Notification Error",
		Html: fmt.Sprintf(`
			<h2>Email Notification Error</h2>
			<p><strong>Time:</strong> %s</p>
			<p><strong>Context:</strong> %s</p>
			<p><strong>Error:</strong> %s</p>`,
			time.Now().UTC().Format(time.RFC3339), detail, cause.Error()),
	})
	if err != nil {
		m.logger.Error("failed to send ops error notification", "error", err.Error())
		return
	}
	m.logger.Info("ops error notification sent", "recipient", opsAddress)
}

func newFilesBody(name string, fileCount int, headerEmojis, signatureEmojis string, stats []store.UploaderStats) string {
	phrase := fmt.Sprintf("%d new files have", fileCount)
	if fileCount == 1 {
		phrase = "1 new file has"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<h2>New files uploaded %s</h2>", headerEmojis)
	fmt.Fprintf(&b, "<p>Hi %s!</p>", name)
	fmt.Fprintf(&b, "<p>Good news! %s been uploaded to Calebmateo.com. A big thanks to whoever uploaded them!</p>", phrase)
	fmt.Fprintf(&b, `<p>Take a look: <a href="%s"><strong>Recent photos and videos</strong></a></p>`, recentAlbumURL)
	if len(stats) > 0 {
		b.WriteString(statsTable(stats))
	}
	fmt.Fprintf(&b, "<p>See you soon! %s</p>", signatureEmojis)
	return b.String()
}

func statsTable(stats []store.UploaderStats) string {
	var b strings.Builder
	b.WriteString("<h3>Who has been uploading?</h3>")
	b.WriteString("<table><tr><th>Uploader</th><th>Last 7 days</th><th>Last 30 days</th><th>Last year</th></tr>")
	for _, s := range stats {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td><td>%d</td><td>%d</td></tr>",
			s.Name, s.Last7, s.Last30, s.Last365)
	}
	b.WriteString("</table>")
	return b.String()
}

func pickEmojis() string {
	count := rand.Intn(3) + 1
	var b strings.Builder
	for i := 0; i < count; i++ {
		b.WriteString(emojis[rand.Intn(len(emojis))])
	}
	return b.String()
}
