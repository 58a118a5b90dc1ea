package cron

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrInvalidCronExpression = errors.New("invalid cron expression")

type CronSchedule struct {
	expr string
	spec cron.Schedule
}

// ParseCronExpression accepts standard five-field expressions and
// descriptors such as "@hourly" or "@every 10m".
func ParseCronExpression(expr string) (*CronSchedule, error) {
	if expr == "" {
		return nil, ErrInvalidCronExpression
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	spec, err := parser.Parse(expr)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronExpression, err)
	}

	return &CronSchedule{
		expr: expr,
		spec: spec,
	}, nil
}

func ValidateCronExpression(expr string) error {
	_, err := ParseCronExpression(expr)

	return err
}

func (s *CronSchedule) String() string {
	if s == nil {
		return ""
	}

	return s.expr
}

// Next returns the first activation strictly after from.
func (s *CronSchedule) Next(from time.Time) time.Time {
	if s == nil || s.spec == nil {
		return time.Time{}
	}

	return s.spec.Next(from)
}
