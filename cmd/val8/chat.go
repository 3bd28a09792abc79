package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"val8-concierge/internal/checkout"
	"val8-concierge/internal/engine"
	"val8-concierge/internal/events"
	"val8-concierge/internal/handler"
	"val8-concierge/internal/models"
	"val8-concierge/internal/speech"
)

const idleTimeout = time.Minute

func chatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Talk to the concierge in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "script", Aliases: []string{"s"}, Usage: "Demo script to play, overrides app.script"},
			&cli.BoolFlag{Name: "standard", Usage: "Use the keyword flow instead of the scripted demo"},
			&cli.BoolFlag{Name: "voice", Usage: "Narrate replies, overrides voice.enabled"},
		},
		Action: runChat,
	}
}

// chat drives one session from stdin
type chat struct {
	session *engine.Session
	scanner *bufio.Scanner
	idle    chan struct{}
}

func runChat(c *cli.Context) error {
	rt, err := loadRuntime(c)
	if err != nil {
		return err
	}
	defer rt.close()

	scriptID := rt.cfg.App.Script
	if c.IsSet("script") {
		scriptID = c.String("script")
	}
	demo := rt.cfg.App.Demo && !c.Bool("standard")
	voice := rt.cfg.Voice.Enabled || c.Bool("voice")

	var speaker speech.Speaker = speech.Nop{}
	if voice {
		speaker = speech.NewNarrator(os.Stdout, rt.cfg.Voice.WordsPerMinute, rt.logger)
	}

	bus := events.NewBus(rt.logger)
	defer bus.Close()

	session, err := engine.New("", rt.catalog, scriptID, engine.Options{
		Delays:    rt.delays(),
		Speaker:   speaker,
		Publisher: bus,
		Logger:    rt.logger,
		Demo:      demo,
		Voice:     voice,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	ch, err := bus.Subscribe(ctx, session.ID())
	if err != nil {
		return err
	}

	ui := &chat{
		session: session,
		scanner: bufio.NewScanner(os.Stdin),
		idle:    make(chan struct{}, 1),
	}
	go ui.print(ch)

	snap := session.Snapshot()
	sc, err := rt.catalog.Get(snap.Script)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", sc.Icon, sc.HeaderTitle)
	fmt.Println(strings.Repeat("=", 40))
	fmt.Println(sc.WelcomeTitle)
	fmt.Println(sc.WelcomeSubtitle)

	return ui.menu()
}

// print renders session events as they arrive
func (u *chat) print(ch <-chan events.Event) {
	for e := range ch {
		switch e.Type {
		case events.TypeMessage:
			if e.Message.Sender == models.SenderAssistant {
				fmt.Println("\n" + handler.FormatReply(*e.Message))
			}
		case events.TypePhase:
			switch e.Phase {
			case models.PhaseTyping:
				fmt.Print("…")
			case models.PhaseIdle:
				select {
				case u.idle <- struct{}{}:
				default:
				}
			}
		case events.TypeView:
			fmt.Printf("\n[%s]\n", e.View)
		case events.TypeScript:
			fmt.Printf("\nNow playing the %q script.\n", e.Script)
		}
	}
}

func (u *chat) menu() error {
	for {
		fmt.Println("\nCommands:")
		fmt.Println("  1. Talk to the concierge")
		fmt.Println("  2. View trip")
		fmt.Println("  3. Edit a booking")
		fmt.Println("  4. Choose a recommended hotel")
		fmt.Println("  5. Checkout")
		fmt.Println("  6. Switch script")
		fmt.Println("  7. Switch mode")
		fmt.Println("  8. Start over")
		fmt.Println("  9. Exit")
		fmt.Print("\nEnter command (1-9): ")

		if !u.scanner.Scan() {
			return u.scanner.Err()
		}

		switch strings.TrimSpace(u.scanner.Text()) {
		case "1":
			u.talk()
		case "2":
			u.viewTrip()
		case "3":
			u.editBooking()
		case "4":
			u.chooseHotel()
		case "5":
			u.checkout()
		case "6":
			u.switchScript()
		case "7":
			u.switchMode()
		case "8":
			u.session.Reset()
			fmt.Println("Starting over.")
		case "9":
			fmt.Println("Goodbye! 👋")
			return nil
		default:
			fmt.Println("Invalid command. Please try again.")
		}
	}
}

func (u *chat) prompt(label string) (string, bool) {
	fmt.Print(label)
	if !u.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(u.scanner.Text()), true
}

// waitIdle blocks until the session finishes its reply
func (u *chat) waitIdle() {
	select {
	case <-u.idle:
	case <-time.After(idleTimeout):
		fmt.Println("\n❌ The concierge did not answer in time.")
	}
}

func (u *chat) drainIdle() {
	select {
	case <-u.idle:
	default:
	}
}

func (u *chat) talk() {
	fmt.Println("Type a message, or the number of a suggested reply. An empty line returns to the menu.")
	for {
		text, ok := u.prompt("\nYou: ")
		if !ok || text == "" {
			return
		}
		text = handler.ResolveQuickReply(u.session.Messages(), text)

		u.drainIdle()
		if err := u.session.Submit(text); err != nil {
			fmt.Printf("❌ %v\n", err)
			continue
		}
		u.waitIdle()
	}
}

func (u *chat) viewTrip() {
	snap := u.session.Snapshot()
	if len(snap.Ledger) == 0 {
		fmt.Println("\nNothing booked yet.")
		return
	}

	summary := u.session.Summary()
	fmt.Printf("\n📋 Your trip (%d items):\n", len(snap.Ledger))
	fmt.Println(strings.Repeat("-", 60))
	for _, item := range snap.Ledger {
		fmt.Printf("%s %s\n", item.Icon, item.Title)
		if item.Subtitle != "" {
			fmt.Printf("   %s\n", item.Subtitle)
		}
		if item.Price != "" {
			fmt.Printf("   %s\n", item.Price)
		}
	}
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Total: %s", checkout.FormatTotal(summary.Total))
	if summary.Unpriced > 0 {
		fmt.Printf(" (+%d items priced separately)", summary.Unpriced)
	}
	fmt.Println()
}

// choose prints options and returns the picked index
func (u *chat) choose(label string, options []string) (int, bool) {
	for i, o := range options {
		fmt.Printf("  %d. %s\n", i+1, o)
	}
	answer, ok := u.prompt(fmt.Sprintf("%s (1-%d): ", label, len(options)))
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(options) {
		fmt.Println("Invalid choice.")
		return 0, false
	}
	return n - 1, true
}

func (u *chat) editBooking() {
	var editable []models.BookedItem
	for _, item := range u.session.Snapshot().Ledger {
		if item.Editable() {
			editable = append(editable, item)
		}
	}
	if len(editable) == 0 {
		fmt.Println("\nNo editable bookings yet.")
		return
	}

	titles := make([]string, len(editable))
	for i, item := range editable {
		titles[i] = item.Icon + " " + item.Title
	}
	i, ok := u.choose("Booking", titles)
	if !ok {
		return
	}
	item := editable[i]

	fields := make([]string, len(item.EditableFields))
	for j, f := range item.EditableFields {
		fields[j] = fmt.Sprintf("%s: %s", f.Label, f.Value)
	}
	j, ok := u.choose("Field", fields)
	if !ok {
		return
	}
	field := item.EditableFields[j]
	if len(field.Options) > 0 {
		fmt.Printf("Options: %s\n", strings.Join(field.Options, ", "))
	}
	value, ok := u.prompt(fmt.Sprintf("New %s: ", field.Label))
	if !ok || value == "" {
		return
	}

	if err := u.session.EditBooking(item.Category, map[string]string{field.Label: value}); err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	fmt.Println("✅ Booking updated")
}

func (u *chat) chooseHotel() {
	var offered []models.Recommendation
	for _, m := range u.session.Messages() {
		if len(m.Recommendations) > 0 {
			offered = m.Recommendations
		}
	}
	if len(offered) == 0 {
		fmt.Println("\nNo hotels have been recommended yet.")
		return
	}

	names := make([]string, len(offered))
	for i, r := range offered {
		names[i] = fmt.Sprintf("%s (%s, ★ %.1f)", r.Name, r.Price, r.Rating)
	}
	i, ok := u.choose("Hotel", names)
	if !ok {
		return
	}

	u.drainIdle()
	if err := u.session.SelectRecommendation(offered[i].ID); err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	u.waitIdle()
}

func (u *chat) checkout() {
	if u.session.Snapshot().Demo {
		summary, err := u.session.CompleteDemoCheckout()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}
		fmt.Printf("\n🎉 Trip booked: %d items, %s\n", len(summary.Lines), checkout.FormatTotal(summary.Total))
		return
	}

	var info models.UserInfo
	var ok bool
	if info.Name, ok = u.prompt("Name: "); !ok {
		return
	}
	if info.Email, ok = u.prompt("Email: "); !ok {
		return
	}
	if info.Phone, ok = u.prompt("Phone (optional): "); !ok {
		return
	}

	u.drainIdle()
	err := u.session.SubmitCheckout(info)
	var invalid checkout.ValidationErrors
	switch {
	case errors.As(err, &invalid):
		for field, msg := range invalid {
			fmt.Printf("❌ %s: %s\n", field, msg)
		}
		return
	case err != nil:
		fmt.Printf("❌ %v\n", err)
		return
	}
	u.waitIdle()
}

func (u *chat) switchScript() {
	id, ok := u.prompt("Script id (atlanta, financial, dmc): ")
	if !ok || id == "" {
		return
	}
	if err := u.session.SelectScript(id); err != nil {
		fmt.Printf("❌ %v\n", err)
	}
}

func (u *chat) switchMode() {
	demo := !u.session.Snapshot().Demo
	u.session.SetMode(demo)
	if demo {
		fmt.Println("Scripted demo mode. The conversation starts over.")
	} else {
		fmt.Println("Keyword mode. The conversation starts over.")
	}
}
