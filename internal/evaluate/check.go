// Package evaluate turns a received MQTT message into an UP verdict or a
// typed failure. It does no I/O.
package evaluate

import (
	"errors"
	"fmt"
	"strings"

	jsonata "github.com/blues/jsonata-go"

	"github.com/hamed0406/mqttprobe/internal/domain"
)

// Check is one of Keyword or *JSONQuery. The set is closed; Evaluate
// switches over it exhaustively.
type Check interface {
	Type() domain.CheckType
	isCheck()
}

// Keyword passes when the message contains SuccessMessage verbatim.
type Keyword struct {
	SuccessMessage string
}

func (Keyword) Type() domain.CheckType { return domain.CheckKeyword }
func (Keyword) isCheck()               {}

// JSONQuery passes when the JSONata Expression, evaluated against the
// message parsed as JSON, stringifies to ExpectedValue.
type JSONQuery struct {
	Expression    string
	ExpectedValue string

	expr *jsonata.Expr
}

func (*JSONQuery) Type() domain.CheckType { return domain.CheckJSONQuery }
func (*JSONQuery) isCheck()               {}

var errNoSuccessMessage = errors.New("success message is not configured")

// ForMonitor builds the check declared by m. It does not default an empty
// check type; callers decide that.
func ForMonitor(m domain.Monitor) (Check, error) {
	switch m.CheckType {
	case domain.CheckKeyword:
		if m.SuccessMessage == "" {
			return nil, &domain.Failure{Kind: domain.KindMalformedPayload, Topic: m.Topic, Err: errNoSuccessMessage}
		}
		return Keyword{SuccessMessage: m.SuccessMessage}, nil
	case domain.CheckJSONQuery:
		q, err := NewJSONQuery(m.JSONQuery, m.ExpectedValue)
		if err != nil {
			return nil, &domain.Failure{Kind: domain.KindMalformedPayload, Topic: m.Topic, Err: err}
		}
		return q, nil
	default:
		return nil, &domain.Failure{
			Kind:   domain.KindUnsupportedCheckType,
			Topic:  m.Topic,
			Detail: fmt.Sprintf("check type %q", m.CheckType),
		}
	}
}

// NewJSONQuery compiles expression up front so a broken query is reported
// before any connection is made.
func NewJSONQuery(expression, expected string) (*JSONQuery, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, errors.New("json query is not configured")
	}
	expr, err := jsonata.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("compile json query: %w", err)
	}
	return &JSONQuery{Expression: expression, ExpectedValue: expected, expr: expr}, nil
}
