package evaluate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	jsonata "github.com/blues/jsonata-go"

	"github.com/hamed0406/mqttprobe/internal/domain"
)

// UP messages for json-query checks carry no payload, matching what
// operators already grep for.
const jsonQueryUpMsg = "Message received, expected value is found"

// Evaluate judges raw, the message received on topic, against c. On success
// it returns the heartbeat message; otherwise a *domain.Failure.
func Evaluate(c Check, topic, raw string) (string, error) {
	switch c := c.(type) {
	case Keyword:
		return evalKeyword(c, topic, raw)
	case *JSONQuery:
		return evalJSONQuery(c, topic, raw)
	default:
		return "", &domain.Failure{Kind: domain.KindUnsupportedCheckType, Topic: topic}
	}
}

func evalKeyword(c Keyword, topic, raw string) (string, error) {
	if c.SuccessMessage == "" {
		return "", &domain.Failure{Kind: domain.KindMalformedPayload, Topic: topic, Err: errNoSuccessMessage}
	}
	if !strings.Contains(raw, c.SuccessMessage) {
		return "", &domain.Failure{
			Kind:   domain.KindContentMismatch,
			Topic:  topic,
			Detail: "Message: " + raw,
		}
	}
	return fmt.Sprintf("Topic: %s; Message: %s", topic, raw), nil
}

func evalJSONQuery(c *JSONQuery, topic, raw string) (string, error) {
	if c.expr == nil {
		compiled, err := NewJSONQuery(c.Expression, c.ExpectedValue)
		if err != nil {
			return "", &domain.Failure{Kind: domain.KindMalformedPayload, Topic: topic, Err: err}
		}
		c = compiled
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return "", &domain.Failure{Kind: domain.KindMalformedPayload, Topic: topic, Err: fmt.Errorf("parse message: %w", err)}
	}

	res, err := c.expr.Eval(doc)
	defined := true
	if errors.Is(err, jsonata.ErrUndefined) {
		defined, err = false, nil
	}
	if err != nil {
		return "", &domain.Failure{Kind: domain.KindMalformedPayload, Topic: topic, Err: fmt.Errorf("evaluate json query: %w", err)}
	}

	got, ok := stringify(res, defined)
	if !ok || got != c.ExpectedValue {
		return "", &domain.Failure{
			Kind:   domain.KindContentMismatch,
			Topic:  topic,
			Detail: fmt.Sprintf("value was: [%s], expected: [%s]", got, c.ExpectedValue),
		}
	}
	return jsonQueryUpMsg, nil
}

const (
	undefinedText = "<undefined>"
	nullText      = "null"
)

// stringify renders a query result for comparison. ok is false for results
// that have no value (undefined or null); those never equal an expected value.
func stringify(v interface{}, defined bool) (text string, ok bool) {
	if !defined {
		return undefinedText, false
	}
	switch v := v.(type) {
	case nil:
		return nullText, false
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case json.Number:
		return v.String(), true
	case []interface{}:
		parts := make([]string, len(v))
		for i, e := range v {
			if s, ok := stringify(e, true); ok {
				parts[i] = s
			}
		}
		return strings.Join(parts, ","), true
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v), true
		}
		return string(b), true
	}
}
