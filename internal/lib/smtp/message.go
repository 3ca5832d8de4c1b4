package smtp

import (
	"fmt"
	"mime"
	"strings"
)

var headerReplacer = strings.NewReplacer("\r", "", "\n", " ")

// BuildMessage собирает текстовое письмо в UTF-8.
// Переводы строк из заголовков удаляются.
func BuildMessage(from, to, subject, body string) []byte {
	return []byte(strings.Join([]string{
		"From: " + headerReplacer.Replace(from),
		"To: " + headerReplacer.Replace(to),
		"Subject: " + mime.QEncoding.Encode("UTF-8", headerReplacer.Replace(subject)),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"),
	}, "\r\n"))
}

// Send отправляет одно письмо через уже подключённого клиента и закрывает сессию.
func Send(client Client, from, to string, msg []byte) error {
	const op = "smtp.Send"
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("%s: MAIL FROM: %w", op, err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("%s: RCPT TO %s: %w", op, to, err)
	}
	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("%s: DATA: %w", op, err)
	}
	if _, err = wc.Write(msg); err != nil {
		_ = wc.Close()
		return fmt.Errorf("%s: write body: %w", op, err)
	}
	if err = wc.Close(); err != nil {
		return fmt.Errorf("%s: close body: %w", op, err)
	}
	if err = client.Quit(); err != nil {
		return fmt.Errorf("%s: QUIT: %w", op, err)
	}
	return nil
}
