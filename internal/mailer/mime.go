package mailer

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime"
	"sort"
	"strings"
	"time"
)

func formatAddress(name, addr string) string {
	if name == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", name), addr)
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

type mimeWriter struct{ strings.Builder }

func (w *mimeWriter) header(k, v string) {
	w.WriteString(k)
	w.WriteString(": ")
	w.WriteString(v)
	w.WriteString("\r\n")
}

func (w *mimeWriter) part(contentType, body string) {
	w.header("Content-Type", contentType+"; charset=UTF-8")
	w.header("Content-Transfer-Encoding", "8bit")
	w.WriteString("\r\n")
	w.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		w.WriteString("\r\n")
	}
}

// buildMIMEMessage renders e as an RFC 5322 message. Both bodies produce
// multipart/alternative with the text part first.
func buildMIMEMessage(e Email, messageIDDomain string, now time.Time) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}

	var w mimeWriter
	w.header("Date", now.Format(time.RFC1123Z))
	w.header("Message-ID", fmt.Sprintf("<%s@%s>", randomHex(12), messageIDDomain))
	w.header("From", formatAddress(e.FromName, e.From))
	w.header("To", strings.Join(e.To, ", "))
	if len(e.Cc) > 0 {
		w.header("Cc", strings.Join(e.Cc, ", "))
	}
	w.header("Subject", mime.QEncoding.Encode("utf-8", e.Subject))
	w.header("MIME-Version", "1.0")

	keys := make([]string, 0, len(e.Headers))
	for k, v := range e.Headers {
		if k != "" && v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.header(k, e.Headers[k])
	}

	switch {
	case e.TextBody != "" && e.HTMLBody != "":
		boundary := "alt-" + randomHex(12)
		w.header("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", boundary))
		w.WriteString("\r\n")
		w.WriteString("--" + boundary + "\r\n")
		w.part("text/plain", e.TextBody)
		w.WriteString("--" + boundary + "\r\n")
		w.part("text/html", e.HTMLBody)
		w.WriteString("--" + boundary + "--\r\n")
	case e.HTMLBody != "":
		w.part("text/html", e.HTMLBody)
	default:
		w.part("text/plain", e.TextBody)
	}
	return w.String(), nil
}
