package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Button is one inline button; Data travels back in the callback.
type Button struct {
	Text string
	Data string
}

// Markup is a grid of inline buttons.
type Markup [][]Button

const (
	CallbackAttend     = "attend_True"
	CallbackAbsent     = "attend_False"
	CallbackDicePrefix = "dice_"
	CallbackJumbo      = "dice_+1"
	CallbackNormal     = "dice_-1"
	CallbackAlcoholic  = "dice_alcoholic"
	CallbackSober      = "dice_non-alcoholic"
)

func AttendMarkup() Markup {
	return Markup{{
		{Text: "Dabei", Data: CallbackAttend},
		{Text: "Nicht dabei", Data: CallbackAbsent},
	}}
}

func DiceMarkup() Markup {
	row := func(from, to int) []Button {
		var buttons []Button
		for i := from; i <= to; i++ {
			buttons = append(buttons, Button{Text: strconv.Itoa(i), Data: fmt.Sprintf("%s%d", CallbackDicePrefix, i)})
		}
		return buttons
	}
	return Markup{
		row(1, 3),
		row(4, 6),
		{{Text: "Normal", Data: CallbackNormal}, {Text: "Jumbo", Data: CallbackJumbo}},
		{{Text: "Alkoholfrei", Data: CallbackSober}, {Text: "Vernünftig", Data: CallbackAlcoholic}},
	}
}

type RollKind int

const (
	RollValue RollKind = iota
	RollJumbo
	RollNormal
	RollAlcoholic
	RollNonAlcoholic
)

// RollChoice is what a participant picked on the dice keyboard.
type RollChoice struct {
	Kind  RollKind
	Value int
}

// ParseRollChoice decodes dice callback data.
func ParseRollChoice(data string) (RollChoice, error) {
	switch data {
	case CallbackJumbo:
		return RollChoice{Kind: RollJumbo}, nil
	case CallbackNormal:
		return RollChoice{Kind: RollNormal}, nil
	case CallbackAlcoholic:
		return RollChoice{Kind: RollAlcoholic}, nil
	case CallbackSober:
		return RollChoice{Kind: RollNonAlcoholic}, nil
	}
	if !strings.HasPrefix(data, CallbackDicePrefix) {
		return RollChoice{}, fmt.Errorf("not a dice callback: %q", data)
	}
	v, err := strconv.Atoi(strings.TrimPrefix(data, CallbackDicePrefix))
	if err != nil || v < 1 || v > 6 {
		return RollChoice{}, fmt.Errorf("invalid dice value: %q", data)
	}
	return RollChoice{Kind: RollValue, Value: v}, nil
}
