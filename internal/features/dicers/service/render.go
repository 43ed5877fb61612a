package service

import (
	"fmt"
	"strings"

	"dicers-bot/internal/features/dicers/models"
)

const (
	attendHeader = "Wer ist dabei?"
	diceHeader   = "Was hast du gewürfelt?"
)

// attendText renders the poll: attendees, absentees and users who still owe
// an answer, each sorted by name.
func (r *Room) attendText() string {
	ev := r.state.CurrentEvent
	var b strings.Builder
	b.WriteString(attendHeader)
	b.WriteString("\nBisher: ")

	attendees := ev.AttendeeList()
	pair := r.easterEggPresent(attendees)

	names := make([]string, 0, len(attendees))
	for _, u := range attendees {
		if pair && r.inEasterEggPair(u.Name) {
			continue
		}
		names = append(names, u.Name)
	}
	listing := strings.Join(names, ", ")
	if pair {
		listing = strings.TrimSpace(listing + " " + r.deps.Settings.EasterEggSuffix)
	}

	switch {
	case listing == "":
		b.WriteString("Niemand :(")
	case len(ev.Attendees) == len(r.state.Users):
		b.WriteString("Alle 🎉")
	default:
		b.WriteString(listing)
	}

	if absentees := ev.AbsenteeList(); len(absentees) > 0 {
		b.WriteString("\nNicht dabei: ")
		b.WriteString(joinNames(absentees))
	}
	if notVoted := r.state.NotVoted(); len(notVoted) > 0 {
		b.WriteString("\nincoming warnings: ")
		b.WriteString(joinNames(notVoted))
	}
	return b.String()
}

// easterEggPresent reports whether every member of the configured pair attends.
func (r *Room) easterEggPresent(attendees []*models.User) bool {
	pair := r.deps.Settings.EasterEggPair
	if len(pair) == 0 {
		return false
	}
	found := 0
	for _, name := range pair {
		for _, u := range attendees {
			if strings.EqualFold(u.Name, name) {
				found++
				break
			}
		}
	}
	return found == len(pair)
}

func (r *Room) inEasterEggPair(name string) bool {
	for _, n := range r.deps.Settings.EasterEggPair {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// diceText lists every attendee with a roll and the amount to pay: the sum of
// rolls, jumbo counting one extra, plus one per head as tip.
func (r *Room) diceText() string {
	var rolled []*models.User
	for _, u := range r.state.CurrentEvent.AttendeeList() {
		if u.HasRolled() {
			rolled = append(rolled, u)
		}
	}
	if len(rolled) == 0 {
		return diceHeader
	}
	models.SortByNameFold(rolled)

	entries := make([]string, 0, len(rolled))
	sum := 0
	for _, u := range rolled {
		jumbo, sober := "", ""
		roll := u.Roll
		if u.Jumbo {
			jumbo = "+1"
			roll++
		}
		if !u.Alcoholic {
			sober = " 💔"
		}
		entries = append(entries, fmt.Sprintf("%s (%d%s%s)", u.Name, u.Roll, jumbo, sober))
		sum += roll
	}
	return fmt.Sprintf("%s\n%s\nΣ: %d€ + %d€ Trinkgeld", diceHeader, strings.Join(entries, ", "), sum, len(rolled))
}

func joinNames(users []*models.User) string {
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Name
	}
	return strings.Join(names, ", ")
}
