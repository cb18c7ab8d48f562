// Package logging provides leveled, colorized console output for the
// sniffer, gated on the app's is_debug setting.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/viper"
)

var (
	Stderr = New(os.Stderr)
	color  = aurora.NewAurora(true)
)

// DisableColor turns off ANSI color codes, for non-terminal output such as
// a redirected log file.
func DisableColor() {
	color = aurora.NewAurora(false)
}

func Infoln(args ...interface{})        { Stderr.Infoln(args...) }
func Warnln(args ...interface{})        { Stderr.Warnln(args...) }
func Errorln(args ...interface{})       { Stderr.Errorln(args...) }
func Debugln(args ...interface{})       { Stderr.Debugln(args...) }
func Infof(f string, a ...interface{})  { Stderr.Infof(f, a...) }
func Warnf(f string, a ...interface{})  { Stderr.Warnf(f, a...) }
func Errorf(f string, a ...interface{}) { Stderr.Errorf(f, a...) }
func Debugf(f string, a ...interface{}) { Stderr.Debugf(f, a...) }

// L is a leveled logger, implemented by the console logger here. Adapters
// for third-party clients that expect their own logging interface wrap an L
// (see translator's leveledLogger for retryablehttp.LeveledLogger).
type L interface {
	Infoln(args ...interface{})
	Warnln(args ...interface{})
	Errorln(args ...interface{})
	Debugln(args ...interface{})
	Infof(f string, args ...interface{})
	Warnf(f string, args ...interface{})
	Errorf(f string, args ...interface{})
	Debugf(f string, args ...interface{})
}

type logger struct {
	out io.Writer
}

func New(out io.Writer) L {
	return logger{out: out}
}

func (l logger) ln(tag string, args ...interface{}) {
	line := append([]interface{}{tag}, args...)
	fmt.Fprintln(l.out, line...)
}

func (l logger) Infoln(args ...interface{})  { l.ln(color.Blue("[INFO]").String(), args...) }
func (l logger) Warnln(args ...interface{})  { l.ln(color.Yellow("[WARN]").String(), args...) }
func (l logger) Errorln(args ...interface{}) { l.ln(color.Red("[ERROR]").String(), args...) }

func (l logger) Debugln(args ...interface{}) {
	if viper.GetBool("is_debug") {
		l.ln(color.Magenta("[DEBUG]").String(), args...)
	}
}

func (l logger) Infof(f string, args ...interface{}) {
	fmt.Fprint(l.out, color.Blue("[INFO] ").String())
	fmt.Fprintf(l.out, f, args...)
}

func (l logger) Warnf(f string, args ...interface{}) {
	fmt.Fprint(l.out, color.Yellow("[WARN] ").String())
	fmt.Fprintf(l.out, f, args...)
}

func (l logger) Errorf(f string, args ...interface{}) {
	fmt.Fprint(l.out, color.Red("[ERROR] ").String())
	fmt.Fprintf(l.out, f, args...)
}

func (l logger) Debugf(f string, args ...interface{}) {
	if viper.GetBool("is_debug") {
		fmt.Fprint(l.out, color.Magenta("[DEBUG] ").String())
		fmt.Fprintf(l.out, f, args...)
	}
}
