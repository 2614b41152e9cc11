package bot

import (
	"fmt"
	"strings"

	"github.com/harybot/breakroom/internal/tracking"
)

// Fixed responses outside the ack/report flow.
const (
	promptPickButton = "Vui lòng chọn nút bên dưới 👇"
	promptSaveFailed = "Ghi nhận thất bại, vui lòng thử lại 🙏"
	noDataToday      = "Hôm nay chưa có dữ liệu 👌"
	everyoneOnTime   = "Mọi người đều đúng giờ 👍"
)

// RenderWelcome renders the /start greeting.
func RenderWelcome(firstName string) string {
	return fmt.Sprintf("Chọn hành động của bạn 选择\n\n👋 %s", firstName)
}

// RenderAck renders a recorded event the way the original bot did:
// name, time of day, pressed button, success marker.
func RenderAck(ack *tracking.Ack) string {
	var b strings.Builder

	label := ButtonReturn
	if ack.Event == tracking.EventDeparture {
		label = ButtonLabel(ack.Action)
	}

	fmt.Fprintf(&b, "👤 %s\n", ack.DisplayName)
	fmt.Fprintf(&b, "🕐 %s → %s\n", ack.At.Format("15:04"), label)

	switch {
	case ack.Rejected != "":
		fmt.Fprintf(&b, "\nBạn vẫn đang %s, bấm %q trước nhé.", ShortLabel(ack.Rejected), ButtonReturn)
		return b.String()
	case ack.Replaced != "":
		fmt.Fprintf(&b, "(đã hủy %s)\n", ShortLabel(ack.Replaced))
	}

	if ack.Closed != nil {
		fmt.Fprintf(&b, "⏱ %d phút", ack.Closed.Minutes)
		if ack.Closed.Overtime > 0 {
			fmt.Fprintf(&b, " — quá giờ %d phút / 超时%d分钟", ack.Closed.Overtime, ack.Closed.Overtime)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nĐã ghi nhận thành công!")
	return b.String()
}

// RenderDaily renders the /stats report as one newline-joined block,
// one line per user plus a grand total.
func RenderDaily(report *tracking.DailyReport) string {
	if len(report.Users) == 0 {
		return noDataToday
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Thống kê ngày %s\n", report.Day)

	for _, user := range report.Users {
		parts := make([]string, 0, len(user.Actions))
		for _, ac := range user.Actions {
			parts = append(parts, fmt.Sprintf("%s %d/%d", ShortLabel(ac.Action), ac.Today, ac.Total))
		}
		fmt.Fprintf(&b, "👤 %s — %s — hôm nay %d, tổng %d\n",
			user.DisplayName, strings.Join(parts, ", "), user.Today, user.Total)
	}

	fmt.Fprintf(&b, "Tổng cộng hôm nay: %d (tất cả: %d)", report.GrandToday, report.GrandTotal)
	return b.String()
}

// RenderOvertime renders the /overtime report.
func RenderOvertime(report *tracking.OvertimeReport) string {
	if len(report.Users) == 0 {
		return everyoneOnTime
	}

	var b strings.Builder
	fmt.Fprintf(&b, "⏰ Quá giờ ngày %s\n", report.Day)

	for _, user := range report.Users {
		parts := make([]string, 0, len(user.Items))
		for _, item := range user.Items {
			part := fmt.Sprintf("%s +%d phút", ShortLabel(item.Action), item.Minutes)
			if item.Live {
				part += " (đang ra ngoài)"
			}
			parts = append(parts, part)
		}
		fmt.Fprintf(&b, "👤 %s — %s\n", user.DisplayName, strings.Join(parts, ", "))
	}

	return strings.TrimRight(b.String(), "\n")
}
