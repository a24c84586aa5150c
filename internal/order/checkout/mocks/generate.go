// Package mocks holds gomock doubles for the checkout collaborators.
package mocks

//go:generate mockgen -destination=mock_notifier.go -package=mocks coffee-eshop-go/internal/order/checkout Notifier
