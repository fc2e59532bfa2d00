package bot

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"xraybot/internal/config"
	"xraybot/internal/flow"
	"xraybot/internal/logger"
	"xraybot/internal/metrics"
	"xraybot/internal/model"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/dcs"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/message/markup"
	"github.com/gotd/td/telegram/message/styling"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"go.uber.org/zap"
	"golang.org/x/net/proxy"
)

// Bot is the Telegram transport. It holds no conversation state: every update
// is answered from the flow outcome alone.
type Bot struct {
	cfg     config.TelegramConfig
	flow    *flow.Flow
	render  Renderer
	metrics *metrics.Collector

	api    *tg.Client
	sender *message.Sender
}

func New(cfg config.TelegramConfig, f *flow.Flow, render Renderer, m *metrics.Collector) *Bot {
	if m == nil {
		m = metrics.New()
	}
	return &Bot{cfg: cfg, flow: f, render: render, metrics: m}
}

// Run logs in with the bot token and serves updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	dialer, err := dialerFor(b.cfg.ProxyURL)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(b.cfg.SessionFile); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0700)
	}

	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnNewMessage(b.onMessage)
	dispatcher.OnBotCallbackQuery(b.onCallback)

	client := telegram.NewClient(b.cfg.APIID, b.cfg.APIHash, telegram.Options{
		UpdateHandler:  dispatcher,
		SessionStorage: &telegram.FileSessionStorage{Path: b.cfg.SessionFile},
		Resolver: dcs.Plain(dcs.PlainOptions{
			Dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			},
		}),
		Logger: logger.Log.Desugar().Named("telegram").WithOptions(zap.IncreaseLevel(zap.WarnLevel)),
	})
	b.api = client.API()
	b.sender = message.NewSender(b.api)

	return client.Run(ctx, func(ctx context.Context) error {
		status, err := client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get auth status: %w", err)
		}
		if !status.Authorized {
			if _, err := client.Auth().Bot(ctx, b.cfg.BotToken); err != nil {
				return fmt.Errorf("bot login failed: %w", err)
			}
		}
		logger.Log.Info("🔓 Telegram bot login successful, waiting for updates")

		<-ctx.Done()
		return ctx.Err()
	})
}

func (b *Bot) onMessage(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
	msg, ok := u.Message.(*tg.Message)
	if !ok || msg.Out {
		return nil
	}
	cmd, ok := parseCommand(msg.Message)
	if !ok {
		return nil
	}
	userID, ok := senderID(msg)
	if !ok {
		return nil
	}

	user := model.TelegramUser{TelegramID: userID}
	if tu, ok := e.Users[userID]; ok {
		user.Username = tu.Username
		user.FirstName = tu.FirstName
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.HandlerTimeout)
	defer cancel()
	start := time.Now()

	out, err := b.flow.Start(ctx, user)
	if err != nil {
		b.metrics.RecordFailure("directory", err)
		logger.Log.Errorf("start for user %d failed: %v", userID, err)
		return nil
	}
	b.metrics.RecordOutcome(out.Kind.String(), time.Since(start))
	logger.Log.Debugf("user %d: %s -> %s", userID, msg.Message, out.Kind)

	reply := b.render.Command(cmd, out)
	if _, err := b.sender.Answer(e, u).Markup(keyboard(reply.Keyboard)).StyledText(ctx, styled(reply.Text)...); err != nil {
		b.metrics.RecordFailure("telegram", err)
		logger.Log.Warnf("failed to answer user %d: %v", userID, err)
	}
	return nil
}

func (b *Bot) onCallback(ctx context.Context, e tg.Entities, u *tg.UpdateBotCallbackQuery) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.HandlerTimeout)
	defer cancel()
	start := time.Now()

	out, err := b.flow.Handle(ctx, u.UserID, string(u.Data))
	if err != nil {
		b.metrics.RecordFailure("directory", err)
		logger.Log.Errorf("callback %q for user %d failed: %v", u.Data, u.UserID, err)
		b.answer(ctx, u.QueryID, "")
		return nil
	}
	b.metrics.RecordOutcome(out.Kind.String(), time.Since(start))
	logger.Log.Debugf("user %d: %s -> %s", u.UserID, u.Data, out.Kind)

	reply := b.render.Callback(out)
	if reply.Alert != "" || len(reply.Text) == 0 {
		b.answer(ctx, u.QueryID, reply.Alert)
		return nil
	}

	peer, ok := inputPeer(e, u.Peer)
	if !ok {
		logger.Log.Warnf("cannot resolve peer for callback from user %d", u.UserID)
		b.answer(ctx, u.QueryID, "")
		return nil
	}

	to := b.sender.To(peer).Markup(keyboard(reply.Keyboard))
	if reply.Edit {
		_, err = to.Edit(u.MsgID).StyledText(ctx, styled(reply.Text)...)
	} else {
		_, err = to.StyledText(ctx, styled(reply.Text)...)
	}
	if err != nil && !tgerr.Is(err, "MESSAGE_NOT_MODIFIED") {
		b.metrics.RecordFailure("telegram", err)
		logger.Log.Warnf("failed to reply to user %d: %v", u.UserID, err)
	}

	b.answer(ctx, u.QueryID, "")
	return nil
}

// answer stops the button spinner; a non-empty text is shown as an alert.
func (b *Bot) answer(ctx context.Context, queryID int64, alert string) {
	_, err := b.api.MessagesSetBotCallbackAnswer(ctx, &tg.MessagesSetBotCallbackAnswerRequest{
		QueryID: queryID,
		Message: alert,
		Alert:   alert != "",
	})
	if err != nil {
		logger.Log.Debugf("failed to answer callback %d: %v", queryID, err)
	}
}

// parseCommand recognises /start and /mykeys, with or without a @botname
// suffix or payload.
func parseCommand(text string) (Command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return 0, false
	}
	name, _, _ := strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")
	switch strings.ToLower(name) {
	case "start":
		return CommandStart, true
	case "mykeys":
		return CommandMyKeys, true
	default:
		return 0, false
	}
}

func senderID(msg *tg.Message) (int64, bool) {
	if from, ok := msg.GetFromID(); ok {
		if p, ok := from.(*tg.PeerUser); ok {
			return p.UserID, true
		}
	}
	if p, ok := msg.PeerID.(*tg.PeerUser); ok {
		return p.UserID, true
	}
	return 0, false
}

func inputPeer(e tg.Entities, peer tg.PeerClass) (tg.InputPeerClass, bool) {
	switch p := peer.(type) {
	case *tg.PeerUser:
		if user, ok := e.Users[p.UserID]; ok {
			return user.AsInputPeer(), true
		}
	case *tg.PeerChat:
		return &tg.InputPeerChat{ChatID: p.ChatID}, true
	case *tg.PeerChannel:
		if ch, ok := e.Channels[p.ChannelID]; ok {
			return ch.AsInputPeer(), true
		}
	}
	return nil, false
}

func keyboard(rows [][]Button) tg.ReplyMarkupClass {
	if len(rows) == 0 {
		return nil
	}
	out := make([]tg.KeyboardButtonRow, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tg.KeyboardButtonClass, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, markup.Callback(btn.Text, []byte(btn.Data)))
		}
		out = append(out, markup.Row(buttons...))
	}
	return markup.InlineKeyboard(out...)
}

func styled(spans []Span) []styling.StyledTextOption {
	out := make([]styling.StyledTextOption, 0, len(spans))
	for _, s := range spans {
		switch s.Style {
		case Bold:
			out = append(out, styling.Bold(s.Text))
		case Code:
			out = append(out, styling.Code(s.Text))
		default:
			out = append(out, styling.Plain(s.Text))
		}
	}
	return out
}

func dialerFor(proxyURL string) (proxy.Dialer, error) {
	if proxyURL == "" {
		return proxy.Direct, nil
	}
	u, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram proxy url: %w", err)
	}
	d, err := proxy.FromURL(u, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("unsupported telegram proxy: %w", err)
	}
	logger.Log.Infof("Telegram using proxy: %s", u.Redacted())
	return d, nil
}

// IsShutdown reports whether err is the normal end of Run.
func IsShutdown(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}
