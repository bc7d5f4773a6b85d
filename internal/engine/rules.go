package engine

import (
	"strings"
	"unicode"

	boterrors "github.com/abgdnv/orderbot/internal/errors"
)

type matchMode int

const (
	// matchContains fires when a keyword is a substring of the lower-cased message.
	matchContains matchMode = iota
	// matchWord fires when a keyword equals one of the message's words.
	matchWord
	// matchExact fires when the whole message, stripped of symbols, equals a keyword.
	matchExact
)

// rule routes a message to a target state when one of its keywords matches.
type rule struct {
	keywords []string
	mode     matchMode
	target   State
	effect   func(e *Engine, t *turn) error
}

func (r rule) matches(t *turn) bool {
	switch r.mode {
	case matchWord:
		for _, w := range t.words() {
			if containsString(r.keywords, w) {
				return true
			}
		}
		return false
	case matchExact:
		return containsString(r.keywords, t.token())
	default:
		return containsAny(t.lower, r.keywords)
	}
}

// stateTable is the per-state dispatch: rules are tried in order, fallback handles everything else.
type stateTable struct {
	rules    []rule
	fallback func(e *Engine, t *turn) error
}

func firstMatch(rules []rule, t *turn) (rule, bool) {
	for _, r := range rules {
		if r.matches(t) {
			return r, true
		}
	}
	return rule{}, false
}

// overrides are state-local rules that take precedence over the universal menu interrupt.
func (e *Engine) buildOverrides() map[State][]rule {
	overrides := map[State][]rule{
		StatePaymentMethod: {
			{keywords: e.cfg.BackTokens, mode: matchExact, target: StateShippingInfo, effect: (*Engine).backToShipping},
		},
		StateConfirmation: {
			{keywords: e.cfg.ConfirmKeywords, mode: matchWord, target: StateMenu, effect: (*Engine).finalize},
			{keywords: e.cfg.CancelKeywords, mode: matchWord, target: StateMenu, effect: (*Engine).cancelPurchase},
		},
	}
	if e.cfg.GeneralizedBack {
		back := func(target State, effect func(*Engine, *turn) error) rule {
			return rule{keywords: e.cfg.BackTokens, mode: matchExact, target: target, effect: effect}
		}
		overrides[StateQuantity] = append(overrides[StateQuantity], back(StateProductSelection, (*Engine).showCatalog))
		overrides[StateShippingInfo] = append(overrides[StateShippingInfo], back(StateProductSelection, (*Engine).showCatalog))
		overrides[StateConfirmation] = append([]rule{back(StatePaymentMethod, (*Engine).showPaymentMethods)}, overrides[StateConfirmation]...)
	}
	return overrides
}

func (e *Engine) buildTables() map[State]stateTable {
	info := func(text string) func(*Engine, *turn) error {
		return func(_ *Engine, t *turn) error {
			t.reply = mainMenu(text)
			return nil
		}
	}
	return map[State]stateTable{
		StateMenu: {
			rules: []rule{
				{keywords: []string{"comprar"}, target: StateProductSelection, effect: (*Engine).startPurchase},
				{keywords: []string{"estado"}, target: StateOrderStatusLookup, effect: (*Engine).askOrderID},
				{keywords: []string{"horarios"}, target: StateMenu, effect: info(textSchedule)},
				{keywords: []string{"preguntas"}, target: StateMenu, effect: info(textFAQ)},
				{keywords: []string{"contacto"}, target: StateContact, effect: showStatic(textContact)},
				{keywords: []string{"configuración", "configuracion"}, target: StateSettings, effect: showStatic(textSettings)},
				{keywords: []string{"promociones"}, target: StateMenu, effect: info(textPromotions)},
			},
			fallback: func(_ *Engine, t *turn) error {
				// The menu stays silent on unknown input.
				t.reject(boterrors.ErrUnrecognizedInput, Reply{})
				return nil
			},
		},
		StateProductSelection:  {fallback: (*Engine).selectProduct},
		StateQuantity:          {fallback: (*Engine).addQuantity},
		StateShippingInfo:      {fallback: (*Engine).collectShipping},
		StatePaymentMethod:     {fallback: (*Engine).choosePayment},
		StateConfirmation:      {fallback: (*Engine).repromptConfirmation},
		StateOrderStatusLookup: {fallback: (*Engine).lookupOrder},
		StateContact:           {fallback: showStatic(textContactAck)},
		StateSettings:          {fallback: showStatic(textSettingsWip)},
	}
}

func showStatic(text string) func(*Engine, *turn) error {
	return func(_ *Engine, t *turn) error {
		t.reply = withBack(text)
		return nil
	}
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func notLetterOrDigit(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// normalizeKeywords lower-cases and trims a keyword list, dropping blanks.
func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
