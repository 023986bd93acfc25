package service

import "github.com/spec-kit/ticketdesk/internal/gateway"

func gatewayField(name, value string) gateway.EmbedField {
	return gateway.EmbedField{Name: name, Value: value}
}
