package telegram

import (
	"fmt"
	"strings"
	"time"

	"momentum-trader/internal/entity"
	"momentum-trader/internal/trader/dto"
	"momentum-trader/pkg/utils"
)

func signedPct(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+%.2f%%", v)
	}
	return fmt.Sprintf("%.2f%%", v)
}

func directionEmoji(d entity.Direction) string {
	if d == entity.DirectionShort {
		return "🔻"
	}
	return "🚀"
}

// FormatPositionOpenedMessage formats a newly opened paper position.
func FormatPositionOpenedMessage(position *entity.Position, decision dto.RiskDecision) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s **%s %s opened**\n", directionEmoji(position.Direction), position.Direction, position.Symbol))
	sb.WriteString(fmt.Sprintf("• 💵 Entry: $%.6g\n", position.EntryPrice))
	sb.WriteString(fmt.Sprintf("• 🛡 Stop Loss: $%.6g\n", position.StopLoss))
	sb.WriteString(fmt.Sprintf("• 🎯 TP1: $%.6g\n", position.TP1Price))
	sb.WriteString(fmt.Sprintf("• 📦 Size: $%.2f (%.2f%%)\n", decision.Signal.PositionSizeUSD, decision.Signal.PositionSizePct))
	sb.WriteString(fmt.Sprintf("• 📊 Confidence: %d%%\n", position.Confidence))
	if len(decision.Modifications) > 0 {
		sb.WriteString("\n✂️ **Modified by risk gate:**\n")
		for _, m := range decision.Modifications {
			sb.WriteString(fmt.Sprintf("• %s\n", m))
		}
	}
	if decision.Signal.Reasoning != "" {
		sb.WriteString(fmt.Sprintf("\n🧠 **Reasoning:**\n %s\n", utils.CapitalizeSentence(decision.Signal.Reasoning)))
	}
	sb.WriteString(fmt.Sprintf("\n📅 _%s_\n", utils.PrettyDate(position.OpenedAt)))
	return sb.String()
}

// FormatPartialExitMessage formats a TP1 partial exit.
func FormatPartialExitMessage(position *entity.Position, fill dto.Fill) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🎯 **[%s] TP1 reached**\n", position.Symbol))
	sb.WriteString(fmt.Sprintf("• Sold %.6g at $%.6g (%s, $%.2f)\n", fill.Size, fill.Price, signedPct(fill.PnLPct), fill.PnLUSD))
	sb.WriteString(fmt.Sprintf("• 🛡 Stop for the rest: $%.6g\n", position.StopLoss))
	sb.WriteString(fmt.Sprintf("📅 _%s_\n", utils.PrettyDate(position.UpdatedAt)))
	return sb.String()
}

// FormatPositionClosedMessage formats a full exit.
func FormatPositionClosedMessage(position *entity.Position, fill dto.Fill) string {
	emoji := "✅"
	if fill.PnLUSD < 0 {
		emoji = "⚠️"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s **[%s] closed: %s**\n", emoji, position.Symbol, fill.Reason))
	sb.WriteString(fmt.Sprintf("• 💰 Exit: $%.6g (entry $%.6g)\n", fill.Price, position.EntryPrice))
	sb.WriteString(fmt.Sprintf("• Last leg: %s\n", signedPct(fill.PnLPct)))
	sb.WriteString(fmt.Sprintf("• Position total: %s ($%.2f)\n", signedPct(position.PnLPct), position.PnLUSD))
	if position.ClosedAt != nil {
		sb.WriteString(fmt.Sprintf("📅 _%s_\n", utils.PrettyDate(*position.ClosedAt)))
	}
	return sb.String()
}

// FormatBreakerTrippedMessage formats a loss-limit halt.
func FormatBreakerTrippedMessage(status dto.BreakerStatus, snapshot dto.PortfolioSnapshot) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🛑 **Trading halted: %s**\n", status.Reason))
	sb.WriteString(fmt.Sprintf("• Daily P&L: %s\n", signedPct(snapshot.DailyPnLPct)))
	sb.WriteString(fmt.Sprintf("• Weekly P&L: %s\n", signedPct(snapshot.WeeklyPnLPct)))
	if status.ResumesAt != nil {
		sb.WriteString(fmt.Sprintf("• Resumes: %s\n", utils.PrettyDate(*status.ResumesAt)))
	}
	sb.WriteString("_Open positions are still monitored._\n")
	return sb.String()
}

// FormatBreakerResetMessage formats the end of a halt window.
func FormatBreakerResetMessage(reason entity.ReasonCode, at time.Time) string {
	return fmt.Sprintf("🟢 **%s window reset**\nNew approvals resumed.\n📅 _%s_\n", reason, utils.PrettyDate(at))
}

// FormatConfidenceDropMessage formats a re-analysis that scored below the exit threshold.
func FormatConfidenceDropMessage(position *entity.Position, confidence int, reasoning string, closed bool) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📉 **[%s] confidence dropped to %d%%**\n", position.Symbol, confidence))
	sb.WriteString(fmt.Sprintf("• Opened at %d%%, phase %s\n", position.Confidence, position.Phase))
	if closed {
		sb.WriteString("• Position closed automatically.\n")
	} else {
		sb.WriteString("• Advisory only, position left open.\n")
	}
	if reasoning != "" {
		sb.WriteString(fmt.Sprintf("\n🧠 %s\n", utils.CapitalizeSentence(reasoning)))
	}
	return sb.String()
}
