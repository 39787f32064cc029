package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"

	"partnershib-bot/internal/config"
	"partnershib-bot/internal/database"
	"partnershib-bot/internal/service"
)

const stateWaitingWallet = "WAITING_WALLET_ADDRESS"

type Bot struct {
	Instance   *telego.Bot
	Ledger     service.Ledger
	Links      config.LinksConfig
	Dedup      *database.Deduper
	Limiter    *Limiter
	Notifier   *Notifier
	Logger     *zap.Logger
	UserStates map[int64]string
	StatesMu   sync.RWMutex

	username string
}

func NewBot(token string, ledger service.Ledger, links config.LinksConfig, dedup *database.Deduper, limiter *Limiter, notifyWorkers int, logger *zap.Logger) (*Bot, error) {
	tgBot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		Instance:   tgBot,
		Ledger:     ledger,
		Links:      links,
		Dedup:      dedup,
		Limiter:    limiter,
		Notifier:   NewNotifier(tgBot, notifyWorkers, logger),
		Logger:     logger,
		UserStates: make(map[int64]string),
	}, nil
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	me, err := b.Instance.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot info: %w", err)
	}
	b.username = me.Username

	updates, err := b.Instance.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.Instance, updates)
	if err != nil {
		return fmt.Errorf("failed to create bot handler: %w", err)
	}

	handler.Use(th.PanicRecovery())
	handler.Use(b.guard)

	handler.Handle(b.handleStart, th.CommandEqual("start"))
	handler.Handle(b.handleTap, th.CallbackDataEqual(CallbackTap))
	handler.Handle(b.handleSkip, th.CallbackDataEqual(CallbackSkip))
	handler.Handle(b.handleConnect, th.CallbackDataEqual(CallbackConnect))
	handler.Handle(b.handleBalance, th.CallbackDataEqual(CallbackBalance))
	handler.Handle(b.handleInvite, th.CallbackDataEqual(CallbackInvite))
	handler.Handle(b.handleDashboard, th.CallbackDataEqual(CallbackDashboard))
	handler.Handle(b.handleText, th.AnyMessageWithText())

	go func() {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		handler.StopWithContext(stopCtx)
	}()

	b.Logger.Info("Bot started", zap.String("username", b.username))
	if err := handler.Start(); err != nil {
		return fmt.Errorf("bot handler stopped: %w", err)
	}
	return nil
}

// guard drops redelivered callbacks and throttles users pressing buttons too fast.
func (b *Bot) guard(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	if callback == nil {
		return ctx.Next(update)
	}

	if b.Dedup != nil {
		first, err := b.Dedup.Claim(ctx.Context(), callback.ID)
		if err != nil {
			// redis being down must not take the bot with it
			b.Logger.Warn("Callback dedup unavailable", zap.Error(err))
		} else if !first {
			b.Logger.Debug("Duplicate callback dropped", zap.String("callback_id", callback.ID))
			return nil
		}
	}

	if b.Limiter != nil && !b.Limiter.Allow(callback.From.ID) {
		_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID).WithText(slowDownMessage))
		return nil
	}
	return ctx.Next(update)
}

func (b *Bot) reply(ctx *th.Context, chatID int64, text string, keyboard *telego.InlineKeyboardMarkup) {
	msg := tu.Message(tu.ID(chatID), text)
	if keyboard != nil {
		msg = msg.WithReplyMarkup(keyboard)
	}
	if _, err := ctx.Bot().SendMessage(ctx.Context(), msg); err != nil {
		b.Logger.Warn("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) answer(ctx *th.Context, callback *telego.CallbackQuery) {
	_ = ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
}

func (b *Bot) setState(userID int64, state string) {
	b.StatesMu.Lock()
	defer b.StatesMu.Unlock()
	if state == "" {
		delete(b.UserStates, userID)
		return
	}
	b.UserStates[userID] = state
}

func (b *Bot) state(userID int64) string {
	b.StatesMu.RLock()
	defer b.StatesMu.RUnlock()
	return b.UserStates[userID]
}

// startPayload returns the deep-link argument of "/start <payload>".
func startPayload(text string) string {
	parts := strings.Fields(text)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}

func (b *Bot) handleStart(ctx *th.Context, update telego.Update) error {
	message := update.Message
	userID := message.From.ID
	b.setState(userID, "")

	text := welcomeMessage
	if code := startPayload(message.Text); code != "" {
		res, err := b.Ledger.RegisterWithReferral(ctx.Context(), userID, code)
		if err != nil {
			b.reply(ctx, message.Chat.ID, unavailableMessage, nil)
			return nil
		}
		text = RenderStart(res.Referral)
	}

	b.reply(ctx, message.Chat.ID, text, MainMenu(b.Links))
	return nil
}

func (b *Bot) handleTap(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	defer b.answer(ctx, callback)

	res, err := b.Ledger.Tap(ctx.Context(), callback.From.ID)
	if err != nil {
		b.reply(ctx, callback.From.ID, unavailableMessage, nil)
		return nil
	}

	var keyboard *telego.InlineKeyboardMarkup
	if res.Outcome == service.Tapped {
		keyboard = tapAgain()
	}
	b.reply(ctx, callback.From.ID, RenderTap(res), keyboard)

	if res.Referral != nil && b.Notifier != nil {
		b.Notifier.ReferralBonus(res.Referral.ReferrerID, res.Referral.Amount)
	}
	return nil
}

func (b *Bot) handleSkip(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	defer b.answer(ctx, callback)

	res, err := b.Ledger.RegisterOrSkip(ctx.Context(), callback.From.ID)
	if err != nil {
		b.reply(ctx, callback.From.ID, unavailableMessage, nil)
		return nil
	}
	b.reply(ctx, callback.From.ID, RenderSkip(res), nil)
	return nil
}

func (b *Bot) handleConnect(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	defer b.answer(ctx, callback)

	b.setState(callback.From.ID, stateWaitingWallet)
	b.reply(ctx, callback.From.ID, askWalletMessage, nil)
	return nil
}

// handleText only acts while the user is expected to send a wallet address.
func (b *Bot) handleText(ctx *th.Context, update telego.Update) error {
	message := update.Message
	userID := message.From.ID

	if b.state(userID) != stateWaitingWallet {
		return nil
	}

	address, ok := NormalizeWallet(message.Text)
	if !ok {
		b.reply(ctx, message.Chat.ID, invalidWalletMessage, nil)
		return nil
	}

	res, err := b.Ledger.BindWallet(ctx.Context(), userID, address)
	if err != nil {
		b.reply(ctx, message.Chat.ID, unavailableMessage, nil)
		return nil
	}

	b.setState(userID, "")
	b.reply(ctx, message.Chat.ID, RenderBind(res), nil)
	return nil
}

func (b *Bot) handleBalance(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	defer b.answer(ctx, callback)

	res, err := b.Ledger.Dashboard(ctx.Context(), callback.From.ID)
	if err != nil {
		b.reply(ctx, callback.From.ID, unavailableMessage, nil)
		return nil
	}
	b.reply(ctx, callback.From.ID, RenderBalance(res), nil)
	return nil
}

func (b *Bot) handleInvite(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	defer b.answer(ctx, callback)

	info, err := b.Ledger.ReferralInfo(ctx.Context(), callback.From.ID)
	if err != nil {
		b.reply(ctx, callback.From.ID, unavailableMessage, nil)
		return nil
	}
	b.reply(ctx, callback.From.ID, RenderInvite(info, b.username), nil)
	return nil
}

func (b *Bot) handleDashboard(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	defer b.answer(ctx, callback)

	res, err := b.Ledger.Dashboard(ctx.Context(), callback.From.ID)
	if err != nil {
		b.reply(ctx, callback.From.ID, unavailableMessage, nil)
		return nil
	}
	b.reply(ctx, callback.From.ID, RenderDashboard(res), nil)
	return nil
}
