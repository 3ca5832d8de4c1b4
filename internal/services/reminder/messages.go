package services

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RenewalTitle заголовок напоминания о продлении.
func RenewalTitle(name string) string {
	return "Upcoming renewal: " + name
}

// RenewalMessage текст напоминания о продлении через days дней.
func RenewalMessage(name string, days int, currency string, price decimal.Decimal) string {
	unit := "day"
	if days > 1 {
		unit = "days"
	}
	return fmt.Sprintf("Your %s subscription will renew in %d %s for %s %s",
		name, days, unit, currency, price.String())
}

// TrialTitle заголовок напоминания об окончании пробного периода.
func TrialTitle(name string) string {
	return "Trial ending: " + name
}

// TrialMessage текст напоминания об окончании пробного периода.
func TrialMessage(name, currency string, price decimal.Decimal) string {
	return fmt.Sprintf("Your free trial for %s ends in %d days. You'll be charged %s %s unless you cancel.",
		name, TrialHorizonDays, currency, price.String())
}

// EmailBody текст письма, которое дублирует уведомление.
func EmailBody(username, message string) string {
	greeting := "Hello!"
	if username != "" {
		greeting = fmt.Sprintf("Hello, %s!", username)
	}
	return greeting + "\n\n" + message + "\n\nYou can change notification settings in your profile.\n"
}
