package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	apperrors "dicers-bot/internal/common/errors"
	"dicers-bot/internal/common/validation"
	"dicers-bot/internal/features/dicers/models"
)

const (
	defaultAdminMute = 15 * time.Minute
	maxAdminMute     = 24 * time.Hour

	usageText = `Würfelbot
/attend - Umfrage starten
/dice - Würfel zeigen
/reset - Runde beenden
/drink <Name> - Cocktail wählen
/stats - Teilnahmen anzeigen
/users - bekannte Leute
/insult - als Antwort: beleidigen`
)

type commandContext struct {
	registry *Registry
	room     *Room
	user     *models.User
	update   Update
}

func (c *commandContext) reply(ctx context.Context, text string) error {
	c.room.Reply(ctx, text)
	return nil
}

// target resolves the user the command message replies to.
func (c *commandContext) target() (*models.User, error) {
	if c.update.ReplyTo == nil {
		return nil, apperrors.NewValidationError("reply", "Antworte auf eine Nachricht der Person.")
	}
	return c.room.EnsureUser(c.update.ReplyTo.ID, c.update.ReplyTo.FirstName), nil
}

type command struct {
	requirement Requirement
	run         func(ctx context.Context, c *commandContext) error
}

func commandTable() map[string]command {
	return map[string]command{
		"start":          {RequireNone, cmdHelp},
		"help":           {RequireNone, cmdHelp},
		"attend":         {RequireChatAdmin, cmdAttend},
		"dice":           {RequireChatAdmin, cmdDice},
		"reset":          {RequireChatAdmin, cmdReset},
		"reset_all":      {RequireMainRoom, cmdResetAll},
		"remind_all":     {RequireMainRoom, cmdRemindAll},
		"dice_all":       {RequireMainRoom, cmdDiceAll},
		"register_main":  {RequireOwner, cmdRegisterMain},
		"unmute_all":     {RequireChatAdmin, cmdUnmuteAll},
		"mute":           {RequireChatAdmin, cmdMute},
		"unmute":         {RequireChatAdmin, cmdUnmute},
		"spam_detection": {RequireChatAdmin, cmdSpamDetection},
		"remove_user":    {RequireChatAdmin, cmdRemoveUser},
		"add_insult":     {RequireMainRoom, cmdAddInsult},
		"insult":         {RequireNone, cmdInsult},
		"drink":          {RequireNone, cmdDrink},
		"stats":          {RequireNone, cmdStats},
		"users":          {RequireNone, cmdUsers},
		"status":         {RequireNone, cmdStatus},
		"server_time":    {RequireNone, cmdServerTime},
		"version":        {RequireNone, cmdVersion},
	}
}

func cmdHelp(ctx context.Context, c *commandContext) error {
	return c.reply(ctx, usageText)
}

func cmdAttend(ctx context.Context, c *commandContext) error {
	c.room.ShowAttend(ctx)
	return nil
}

func cmdDice(ctx context.Context, c *commandContext) error {
	// ShowDice explains a missing event itself.
	if _, err := c.room.ShowDice(ctx); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("Dice not shown")
	}
	return nil
}

func cmdReset(ctx context.Context, c *commandContext) error {
	if !c.room.Reset(ctx) {
		return c.reply(ctx, "Zurückgesetzt, aber nicht alles hat geklappt.")
	}
	return c.reply(ctx, "Zurückgesetzt.")
}

func cmdResetAll(ctx context.Context, c *commandContext) error {
	return c.reply(ctx, c.registry.ResetAll(ctx).Summary("reset"))
}

func cmdRemindAll(ctx context.Context, c *commandContext) error {
	return c.reply(ctx, c.registry.OpenAttendAll(ctx).Summary("attend"))
}

func cmdDiceAll(ctx context.Context, c *commandContext) error {
	return c.reply(ctx, c.registry.OpenDiceAll(ctx).Summary("dice"))
}

func cmdRegisterMain(ctx context.Context, c *commandContext) error {
	c.registry.SetMainRoom(c.room.ID())
	return c.reply(ctx, "Dieser Chat ist jetzt der Hauptchat.")
}

func cmdUnmuteAll(ctx context.Context, c *commandContext) error {
	failed := c.room.UnmuteAll(ctx)
	if len(failed) == 0 {
		return c.reply(ctx, "Alle entstummt.")
	}
	return c.reply(ctx, "Konnte nicht entstummen: "+joinNames(failed))
}

func cmdMute(ctx context.Context, c *commandContext) error {
	target, err := c.target()
	if err != nil {
		return err
	}
	d, err := validation.Minutes(c.update.Args, defaultAdminMute, maxAdminMute)
	if err != nil {
		return err
	}
	if !c.room.Mute(ctx, target, d, "Admin") {
		return c.reply(ctx, "Stummschalten hat nicht geklappt.")
	}
	return nil
}

func cmdUnmute(ctx context.Context, c *commandContext) error {
	target, err := c.target()
	if err != nil {
		return err
	}
	if !c.room.Unmute(ctx, target) {
		return c.reply(ctx, "Entstummen hat nicht geklappt.")
	}
	return c.reply(ctx, target.Name+" darf wieder schreiben.")
}

func cmdSpamDetection(ctx context.Context, c *commandContext) error {
	if c.room.ToggleSpamDetection() {
		return c.reply(ctx, "Spam-Erkennung ist an.")
	}
	return c.reply(ctx, "Spam-Erkennung ist aus.")
}

func cmdRemoveUser(ctx context.Context, c *commandContext) error {
	name, err := validation.Name(c.update.Args, "Name fehlt: /remove_user <Name>")
	if err != nil {
		return err
	}
	u, err := c.room.RemoveUser(name)
	if err != nil {
		return err
	}
	return c.reply(ctx, u.Name+" wurde entfernt.")
}

func cmdAddInsult(ctx context.Context, c *commandContext) error {
	text, err := validation.Insult(c.update.Args)
	if err != nil {
		return err
	}
	added, err := c.registry.deps.Insults.Add(text)
	if err != nil {
		return apperrors.NewStorageError("add insult", err)
	}
	if !added {
		return c.reply(ctx, "Kenn ich schon.")
	}
	return c.reply(ctx, "Gemerkt.")
}

func cmdInsult(ctx context.Context, c *commandContext) error {
	target, err := c.target()
	if err != nil {
		return err
	}
	return c.reply(ctx, fmt.Sprintf("%s, %s", target.Name, c.registry.deps.Insults.Random()))
}

func cmdDrink(ctx context.Context, c *commandContext) error {
	drink, err := validation.Drink(c.update.Args)
	if err != nil {
		return err
	}
	c.room.SetDrink(c.user, drink)
	if drink == "" {
		return c.reply(ctx, "Kein Getränk mehr gewählt.")
	}
	return c.reply(ctx, fmt.Sprintf("%s trinkt %s.", c.user.Name, drink))
}

func cmdStats(ctx context.Context, c *commandContext) error {
	n := c.room.AttendedCount(c.user)
	return c.reply(ctx, fmt.Sprintf("%s war %d Mal dabei.", c.user.Name, n))
}

func cmdUsers(ctx context.Context, c *commandContext) error {
	var names string
	c.room.View(func(state *models.Room) {
		names = joinNames(state.UserList())
	})
	if names == "" {
		return c.reply(ctx, "Ich kenne hier noch niemanden.")
	}
	return c.reply(ctx, names)
}

func cmdStatus(ctx context.Context, c *commandContext) error {
	var title string
	c.room.View(func(state *models.Room) {
		title = state.Title
	})
	return c.reply(ctx, fmt.Sprintf("[%d] %s", c.room.ID(), title))
}

func cmdServerTime(ctx context.Context, c *commandContext) error {
	return c.reply(ctx, c.registry.now().Format("02.01.2006 15:04:05 MST"))
}

func cmdVersion(ctx context.Context, c *commandContext) error {
	return c.reply(ctx, c.registry.version)
}
