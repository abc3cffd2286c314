package email

import (
	"bufio"
	"bytes"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TemplateHeader names the template a message was rendered from.
const TemplateHeader = "X-Template"

// Message is an outbound plain text email.
type Message struct {
	From     string
	To       []string
	ReplyTo  string
	Subject  string
	Body     string
	Template string
}

var headerBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func oneLine(v string) string {
	return headerBreaks.Replace(v)
}

// BuildMessage renders m as an RFC 822 message. The subject is RFC 2047 encoded
// whenever it carries non-ASCII or control characters.
func BuildMessage(m Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", oneLine(m.From))
	fmt.Fprintf(&b, "To: %s\r\n", oneLine(strings.Join(m.To, ", ")))
	if m.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", oneLine(m.ReplyTo))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@fostercare>\r\n", uuid.NewString())
	if m.Template != "" {
		fmt.Fprintf(&b, "%s: %s\r\n", TemplateHeader, oneLine(m.Template))
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// TemplateOf returns the X-Template header of a raw message, if present.
func TemplateOf(raw []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(raw))
	prefix := strings.ToLower(TemplateHeader) + ":"
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			break
		}
		if strings.HasPrefix(strings.ToLower(line), prefix) {
			return strings.TrimSpace(line[len(prefix):])
		}
	}
	return ""
}
