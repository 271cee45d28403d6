package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"masterhub/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Split is the three-way division of an order price.
type Split struct {
	Master  int64
	Service int64
	Partner int64
}

// SplitPayout divides price between partner, service and master. Partner and
// service shares are floored; whatever rounding leaves over goes to the master,
// so the parts always sum to price. The service share never exceeds what is
// left after the partner share.
func SplitPayout(price int64, partnerPercent, servicePercent decimal.Decimal) (Split, error) {
	if price <= 0 {
		return Split{}, fmt.Errorf("%w: price must be positive", model.ErrValidation)
	}
	if err := checkPercent("partner", partnerPercent); err != nil {
		return Split{}, err
	}
	if err := checkPercent("service", servicePercent); err != nil {
		return Split{}, err
	}

	total := decimal.NewFromInt(price)
	partner := total.Mul(partnerPercent).Div(hundred).Floor().IntPart()
	service := total.Mul(servicePercent).Div(hundred).Floor().IntPart()
	if service > price-partner {
		service = price - partner
	}

	return Split{
		Master:  price - partner - service,
		Service: service,
		Partner: partner,
	}, nil
}

func checkPercent(name string, p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(hundred) {
		return fmt.Errorf("%w: %s percent %s is outside 0..100", model.ErrValidation, name, p)
	}
	return nil
}
