package mail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/AuthService/internal/core/ports"
	"github.com/google/uuid"
)

const dropPrefix = "password-reset"

// DropTransport складывает письма .eml-файлами в объектное хранилище вместо отправки.
// Используется в стендах без SMTP.
type DropTransport struct {
	files  ports.FileStorage
	logger *slog.Logger
	now    func() time.Time
}

func NewDropTransport(files ports.FileStorage, logger *slog.Logger) *DropTransport {
	return &DropTransport{
		files:  files,
		logger: logger.With("component", "mail_drop"),
		now:    time.Now,
	}
}

func (t *DropTransport) Send(ctx context.Context, msg Message) error {
	now := t.now().UTC()
	key := fmt.Sprintf("%s/%s-%s.eml", dropPrefix, now.Format("20060102T150405Z"), uuid.NewString())

	location, err := t.files.UploadFile(ctx, key, bytes.NewReader(msg.Bytes(now)), "message/rfc822")
	if err != nil {
		return fmt.Errorf("drop message %s: %w", key, err)
	}

	t.logger.Info("message stored", "key", key, "location", location)
	return nil
}
