package bot

import "github.com/harybot/breakroom/internal/storage"

// Button labels, exactly as shown on the reply keyboard. Vietnamese
// first, Chinese second, matching the deployed keyboard.
const (
	ButtonEat           = "Đi ăn / 吃饭"
	ButtonSmoke         = "Hút thuốc / 抽烟"
	ButtonRestroomLong  = "Vệ sinh nặng / WC大"
	ButtonRestroomShort = "Vệ sinh nhẹ / WC小"
	ButtonReturn        = "Đã quay lại / 回来了"
)

var buttonActions = map[string]storage.Action{
	ButtonEat:           storage.ActionEat,
	ButtonSmoke:         storage.ActionSmoke,
	ButtonRestroomLong:  storage.ActionRestroomLong,
	ButtonRestroomShort: storage.ActionRestroomShort,
}

var actionButtons = map[storage.Action]string{
	storage.ActionEat:           ButtonEat,
	storage.ActionSmoke:         ButtonSmoke,
	storage.ActionRestroomLong:  ButtonRestroomLong,
	storage.ActionRestroomShort: ButtonRestroomShort,
}

// Short labels used in report lines where the full button text is too wide.
var actionShortLabels = map[storage.Action]string{
	storage.ActionEat:           "Đi ăn",
	storage.ActionSmoke:         "Hút thuốc",
	storage.ActionRestroomLong:  "WC大",
	storage.ActionRestroomShort: "WC小",
}

// ActionFromButton maps a pressed button to its action kind.
func ActionFromButton(text string) (storage.Action, bool) {
	action, ok := buttonActions[text]
	return action, ok
}

// IsReturnButton reports whether text is the return button.
func IsReturnButton(text string) bool {
	return text == ButtonReturn
}

// ButtonLabel returns the full keyboard label for an action.
func ButtonLabel(action storage.Action) string {
	return actionButtons[action]
}

// ShortLabel returns the compact report label for an action.
func ShortLabel(action storage.Action) string {
	return actionShortLabels[action]
}
