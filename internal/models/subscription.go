// Package models содержит доменные структуры трекера подписок: подписку,
// настройки пользователя, уведомление и сообщения для очередей.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionStatus статус подписки пользователя.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionPaused    SubscriptionStatus = "paused"
)

// Subscription представляет платную подписку пользователя на внешний сервис.
// Генераторы уведомлений только читают подписки и никогда их не изменяют.
type Subscription struct {
	ID              string             // Идентификатор подписки
	UserID          string             // Владелец подписки
	Name            string             // Название сервиса (Netflix, Spotify, ...)
	Price           decimal.Decimal    // Стоимость одного периода
	Currency        string             // Код валюты, например USD
	BillingCycle    string             // monthly, yearly, ...
	NextBillingDate time.Time          // Дата следующего списания (только дата)
	AutoRenewal     bool               // Продлевается ли подписка автоматически
	IsFreeTrial     bool               // Идёт ли пробный период
	TrialEndDate    *time.Time         // Дата окончания пробного периода, nil если не задана
	Status          SubscriptionStatus // active, trial, cancelled, paused

	UserEmail string // Email владельца, подтягивается из users
	Username  string // Имя владельца, подтягивается из users
}
