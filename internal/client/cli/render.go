package cli

import (
	"fmt"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/pinmail/internal/server/codec"
	"github.com/dmitrijs2005/pinmail/internal/server/controller"
	"github.com/dustin/go-humanize"
)

func str(data map[string]any, key string) string {
	s, _ := data[key].(string)
	return s
}

func humanizeTime(t time.Time) string {
	return humanize.Time(t)
}

func (a *App) render(r controller.Render) {
	if msg := str(r.Data, controller.KeyReturnMessage); msg != "" && msg != controller.TextEncryptionHint {
		a.printf("%s\n", msg)
	}

	switch r.Page {
	case controller.PageInbox:
		views, _ := r.Data[controller.KeyMessages].([]codec.View)
		a.printInbox(views)
	case controller.PageRead:
		if v, ok := r.Data[controller.KeyMessage].(codec.View); ok {
			a.printMessage(v)
		}
	case controller.PageSend:
		a.printf("To: %s\nSubject: %s\n", str(r.Data, "to_name"), str(r.Data, "subject"))
	case controller.PageLoggedOut:
		a.printf("Logged out\n")
	}

	if errs, ok := r.Data[controller.KeyErrors].(map[string]string); ok {
		fields := make([]string, 0, len(errs))
		for f := range errs {
			fields = append(fields, f)
		}
		slices.Sort(fields)
		for _, f := range fields {
			a.printf("  %s %s\n", f, errs[f])
		}
	}
}

func (a *App) printInbox(views []codec.View) {
	if len(views) == 0 {
		a.printf("No messages\n")
		return
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HASH\tFROM\tSUBJECT\tSENT\tFLAGS")
	for _, v := range views {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", v.Hash, v.From, v.Subject, v.SentAgo, flags(v))
	}
	w.Flush()
}

func flags(v codec.View) string {
	var f []byte
	if !v.Viewed {
		f = append(f, 'N')
	}
	if v.RemoveOnRead {
		f = append(f, 'R')
	}
	if v.Encrypted {
		f = append(f, 'E')
	}
	return string(f)
}

func (a *App) printMessage(v codec.View) {
	a.printf("From: %s\nSubject: %s\nSent: %s\n\n", v.From, v.Subject, v.SentAgo)
	if v.Undecryptable {
		a.printf("(this message could not be decrypted)\n")
	} else {
		a.printf("%s\n", v.Body)
	}
	if v.RemoveOnRead {
		a.printf("\n(this message has been removed from your inbox)\n")
	}
}
