package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"partnershib-bot/internal/config"
	"partnershib-bot/internal/ledger"
	"partnershib-bot/internal/service"
)

// Callback data of the menu buttons.
const (
	CallbackTap       = "tap"
	CallbackSkip      = "skip"
	CallbackConnect   = "connect"
	CallbackBalance   = "balance"
	CallbackInvite    = "invite"
	CallbackDashboard = "dashboard"
)

const (
	welcomeMessage       = "Welcome to PartnerShib Bot! Please choose an option:"
	notRegisteredMessage = "You are not registered yet. Please use the /start command to register."
	unavailableMessage   = "Something went wrong on our side. Please try again in a moment."
	slowDownMessage      = "Easy there! Too many taps, slow down a little."
	askWalletMessage     = "Please enter your Shibarium wallet address:"
	invalidWalletMessage = "Invalid wallet address. Please try again."
)

// MainMenu is the keyboard shown on /start.
func MainMenu(links config.LinksConfig) *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Tap").WithCallbackData(CallbackTap)),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Skip Wallet Connection").WithCallbackData(CallbackSkip)),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Connect Wallet").WithCallbackData(CallbackConnect)),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Check Balance").WithCallbackData(CallbackBalance)),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Invite Friends").WithCallbackData(CallbackInvite)),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Join Telegram Group").WithURL(links.TelegramGroup)),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("Follow on Twitter").WithURL(links.Twitter)),
		tu.InlineKeyboardRow(tu.InlineKeyboardButton("View Dashboard").WithCallbackData(CallbackDashboard)),
	)
}

// tapAgain is attached to tap replies so the user doesn't have to scroll back to the menu.
func tapAgain() *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton("Tap").WithCallbackData(CallbackTap),
			tu.InlineKeyboardButton("View Dashboard").WithCallbackData(CallbackDashboard),
		),
	)
}

// RenderStart is the greeting, with a line about the referral code when one was given.
func RenderStart(status service.ReferralStatus) string {
	var note string
	switch status {
	case service.ReferralApplied:
		note = "You joined with an invite. Your friend earns a bonus every time you tap."
	case service.ReferralUnknownCode:
		note = "That invite link is not valid, but you can still play."
	case service.ReferralSelf:
		note = "You cannot use your own invite link."
	case service.ReferralLimitReached:
		note = "That invite link has already been used the maximum number of times."
	}
	if note == "" {
		return welcomeMessage
	}
	return note + "\n\n" + welcomeMessage
}

func RenderSkip(res service.RegisterResult) string {
	if res.Created {
		return fmt.Sprintf("You have skipped wallet connection and received %d bonus tokens. "+
			"You can still participate in other activities.", res.Account.TokenBalance)
	}
	return "You have skipped wallet connection. You can still participate in other activities."
}

func RenderBind(res service.BindResult) string {
	switch res.Outcome {
	case service.WalletBound:
		msg := fmt.Sprintf("Wallet connected successfully!\n%s", res.Account.WalletAddress)
		if res.Created {
			msg += fmt.Sprintf("\n\nWelcome aboard! %d bonus tokens were added to your balance.", res.Account.TokenBalance)
		}
		return msg
	case service.DuplicateWallet:
		return "This wallet is already connected to another account. Please use a different address."
	default:
		return unavailableMessage
	}
}

func RenderTap(res service.TapResult) string {
	if res.Outcome == service.Tapped {
		return fmt.Sprintf("Tapped! You received %d tokens.\nBalance: %d", res.Reward, res.Account.TokenBalance)
	}

	switch res.Reason {
	case ledger.ReasonNotRegistered:
		return notRegisteredMessage
	case ledger.ReasonDailyLimitReached:
		return "You have reached the maximum taps for today. Please try again tomorrow."
	case ledger.ReasonSupplyExhausted:
		return "All mining tokens have been distributed. Thank you for playing!"
	default:
		return unavailableMessage
	}
}

func RenderDashboard(res service.DashboardResult) string {
	if !res.Registered {
		return notRegisteredMessage
	}
	d := res.Dashboard

	wallet := d.WalletAddress
	if wallet == "" {
		wallet = "Not connected"
	}

	var b strings.Builder
	b.WriteString("Dashboard:\n")
	fmt.Fprintf(&b, "Wallet Address: %s\n", wallet)
	fmt.Fprintf(&b, "Mining Power: %d\n", d.MiningPower)
	fmt.Fprintf(&b, "Token Balance: %d\n", d.TokenBalance)
	fmt.Fprintf(&b, "Referral Count: %d\n", d.ReferralCount)
	fmt.Fprintf(&b, "Joined Telegram: %t\n", d.JoinedTelegram)
	fmt.Fprintf(&b, "Followed Twitter: %t\n", d.FollowedTwitter)
	if d.NextRefill.IsZero() {
		fmt.Fprintf(&b, "Taps Remaining: %d", d.TapsRemaining)
	} else {
		fmt.Fprintf(&b, "Taps Remaining: 0 (refill at %s UTC)", d.NextRefill.UTC().Format(time.DateTime))
	}
	return b.String()
}

func RenderBalance(res service.DashboardResult) string {
	if !res.Registered {
		return notRegisteredMessage
	}
	return fmt.Sprintf("Your token balance: %d", res.Dashboard.TokenBalance)
}

// RenderInvite builds the invite screen around the t.me deep link for code.
func RenderInvite(info service.ReferralInfo, botUsername string) string {
	if !info.Registered {
		return notRegisteredMessage
	}

	link := fmt.Sprintf("https://t.me/%s?start=%s", botUsername, info.Code)
	return fmt.Sprintf("Invite Friends\n\n"+
		"Share your link and earn a bonus every time your friends tap.\n\n"+
		"Invited: %d / %d\n"+
		"Earned: %d tokens\n\n"+
		"Your link:\n%s", info.Count, info.MaxUses, info.Earned, link)
}

// RenderReferralNotice is sent to a referrer after a credited bonus.
func RenderReferralNotice(amount int64) string {
	return fmt.Sprintf("Your friend just tapped! You received a referral bonus of %d tokens.", amount)
}

// RenderRefillReminder is sent once the daily taps are available again.
func RenderRefillReminder() string {
	return "Your daily taps are ready again. Come back and tap!"
}
