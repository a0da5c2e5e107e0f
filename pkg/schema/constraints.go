package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-formflow/pkg/model"
)

var (
	validatorInstance *validator.Validate
	validatorOnce     sync.Once

	patternCache sync.Map
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInstance = validator.New(validator.WithRequiredStructEnabled())
	})
	return validatorInstance
}

func checkTextConstraints(field model.Field, text string, rules []model.ValidationRule) []string {
	var messages []string
	label := field.DisplayLabel()
	for _, rule := range rules {
		switch rule.Kind {
		case model.ValidationRuleMinLength:
			n, err := strconv.Atoi(rule.Params["value"])
			if err != nil {
				continue
			}
			if getValidator().Var(text, fmt.Sprintf("min=%d", n)) != nil {
				messages = append(messages, ruleMessage(rule, fmt.Sprintf("%s must be at least %d characters", label, n)))
			}
		case model.ValidationRuleMaxLength:
			n, err := strconv.Atoi(rule.Params["value"])
			if err != nil {
				continue
			}
			if getValidator().Var(text, fmt.Sprintf("max=%d", n)) != nil {
				messages = append(messages, ruleMessage(rule, fmt.Sprintf("%s must be at most %d characters", label, n)))
			}
		case model.ValidationRulePattern:
			re := compilePattern(rule.Params["pattern"])
			if re != nil && !re.MatchString(text) {
				messages = append(messages, ruleMessage(rule, label+" has an invalid format"))
			}
		}
	}
	return messages
}

func checkNumberConstraints(field model.Field, number float64, rules []model.ValidationRule) []string {
	var messages []string
	label := field.DisplayLabel()
	for _, rule := range rules {
		bound := strings.TrimSpace(rule.Params["value"])
		if _, err := strconv.ParseFloat(bound, 64); err != nil {
			continue
		}
		switch rule.Kind {
		case model.ValidationRuleMin:
			if getValidator().Var(number, "gte="+bound) != nil {
				messages = append(messages, ruleMessage(rule, fmt.Sprintf("%s must be at least %s", label, bound)))
			}
		case model.ValidationRuleMax:
			if getValidator().Var(number, "lte="+bound) != nil {
				messages = append(messages, ruleMessage(rule, fmt.Sprintf("%s must be at most %s", label, bound)))
			}
		}
	}
	return messages
}

func ruleMessage(rule model.ValidationRule, fallback string) string {
	if custom := strings.TrimSpace(rule.Params["message"]); custom != "" {
		return custom
	}
	return fallback
}

func compilePattern(expr string) *regexp.Regexp {
	if expr == "" {
		return nil
	}
	if cached, ok := patternCache.Load(expr); ok {
		return cached.(*regexp.Regexp)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil
	}
	patternCache.Store(expr, re)
	return re
}
