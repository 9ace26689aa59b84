// Package wakfulog follows the Wakfu game client's log and keeps a live
// snapshot of class resources (gauges, buffs, combo progress) for the Iop
// and Cra classes.
//
// The pipeline is read, parse, then apply, run strictly in sequence on
// the caller's poll tick:
//
//	line source -> parser (classify, dedup, per-class parsers) -> tracker
//
// An overlay reads the result through [Monitor.Snapshot], which is safe
// from any goroutine.
//
// # Basic Usage
//
//	m, err := wakfulog.NewMonitor(
//	    wakfulog.WithLogPath(`C:\Users\me\AppData\Roaming\zaap\gamesLogs\wakfu\logs\wakfu_chat.log`),
//	    wakfulog.WithStartAtEnd(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close()
//
//	err = m.Run(ctx, func(u wakfulog.Update) {
//	    for _, ev := range u.Events {
//	        fmt.Println(ev)
//	    }
//	})
//
// To drive the loop yourself, call [Monitor.Tick] at your own interval.
//
// # Combo Definitions
//
// Spells and combos come from a YAML file, see the [combo] package. The
// embedded defaults are used unless [WithDefinitions] is given.
//
// # Errors
//
// Nothing in the pipeline is fatal. A missing or unreadable log file is
// reported as a [*PollError] wrapping [ErrLogUnavailable] and retried on
// the next tick. Lines that match nothing are ignored.
//
// # Disclaimer
//
// This is an unofficial tool and is not affiliated with Ankama.
package wakfulog
