package smtp

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/su-fit-vut/ssrs/internal/application"
	"github.com/su-fit-vut/ssrs/internal/config"
	"github.com/su-fit-vut/ssrs/internal/domain/timeslot"
	"github.com/su-fit-vut/ssrs/internal/pkg/logger"
)

// Mailer は通知ポートのSMTP実装
// 送信はベストエフォートで、失敗はエラーとして返し呼び出し側がログに残す
type Mailer struct {
	host string
	port int
	from string
	user string
	pass string
}

// NewMailer は新しい Mailer を作成する
func NewMailer(cfg *config.MailConfig) *Mailer {
	return &Mailer{
		host: cfg.Host,
		port: cfg.Port,
		from: cfg.From,
		user: cfg.User,
		pass: cfg.Password,
	}
}

func (m *Mailer) SendConfirmationRequest(ctx context.Context, to, confirmLink, cancelLink string, slots []timeslot.View) error {
	body := fmt.Sprintf(
		"予約を受け付けました。以下のリンクから確定してください。\n\n確定: %s\n\n未確定の予約は一定時間で無効になります。\nキャンセル: %s\n%s",
		confirmLink, cancelLink, slotLines(slots))
	return m.send(to, "予約の確定のお願い", body)
}

func (m *Mailer) SendConfirmed(ctx context.Context, to string, seats int, cancelLink string, slots []timeslot.View) error {
	body := fmt.Sprintf(
		"予約が確定しました。座席数: %d\n\n予定が変わった場合はこちらからキャンセルしてください: %s\n%s",
		seats, cancelLink, slotLines(slots))
	return m.send(to, "予約確定のお知らせ", body)
}

func (m *Mailer) SendCancelled(ctx context.Context, to string, seats int, madeOn time.Time) error {
	body := fmt.Sprintf(
		"%s に作成された座席数 %d の予約はキャンセルされました。",
		madeOn.Format("2006-01-02 15:04"), seats)
	return m.send(to, "予約キャンセルのお知らせ", body)
}

func (m *Mailer) SendReminder(ctx context.Context, to string, seats int, cancelLink string, slots []timeslot.View) error {
	body := fmt.Sprintf(
		"ご予約のリマインダーです。座席数: %d\n\n来られなくなった場合はこちらからキャンセルしてください: %s\n%s",
		seats, cancelLink, slotLines(slots))
	return m.send(to, "ご予約のリマインダー", body)
}

func (m *Mailer) send(to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("宛先メールアドレスが空です")
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", m.from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	fmt.Fprintf(&buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(body)
	buf.WriteString("\r\n")

	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}
	if err := smtp.SendMail(addr, auth, m.from, []string{to}, buf.Bytes()); err != nil {
		return fmt.Errorf("メール送信に失敗: %w", err)
	}
	return nil
}

// slotLines はメール本文に載せるスロット一覧を整形する
func slotLines(slots []timeslot.View) string {
	if len(slots) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n参加予定のアクティビティ:\n")
	for _, slot := range slots {
		sb.WriteString(fmt.Sprintf("  - %s %s–%s",
			slot.ActivityName,
			slot.Start.Format("15:04"),
			slot.End.Format("15:04")))
		if slot.Note != nil && *slot.Note != "" {
			sb.WriteString(" (" + *slot.Note + ")")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

var _ application.NotificationPort = (*Mailer)(nil)

// DevMailer は開発環境向けの通知ポート実装
// 実際には送信せず、内容をログに出力するだけ
type DevMailer struct{}

// NewDevMailer は新しい DevMailer を作成する
func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendConfirmationRequest(ctx context.Context, to, confirmLink, cancelLink string, slots []timeslot.View) error {
	logger.Info("開発モード: 確定依頼メール",
		zap.String("to", to), zap.String("confirm_link", confirmLink),
		zap.String("cancel_link", cancelLink), zap.Int("slots", len(slots)))
	return nil
}

func (d *DevMailer) SendConfirmed(ctx context.Context, to string, seats int, cancelLink string, slots []timeslot.View) error {
	logger.Info("開発モード: 確定完了メール",
		zap.String("to", to), zap.Int("seats", seats), zap.Int("slots", len(slots)))
	return nil
}

func (d *DevMailer) SendCancelled(ctx context.Context, to string, seats int, madeOn time.Time) error {
	logger.Info("開発モード: キャンセル通知メール",
		zap.String("to", to), zap.Int("seats", seats), zap.Time("made_on", madeOn))
	return nil
}

func (d *DevMailer) SendReminder(ctx context.Context, to string, seats int, cancelLink string, slots []timeslot.View) error {
	logger.Info("開発モード: リマインダーメール",
		zap.String("to", to), zap.Int("seats", seats), zap.Int("slots", len(slots)))
	return nil
}

var _ application.NotificationPort = (*DevMailer)(nil)
