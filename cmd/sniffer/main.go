// Command sniffer is the CLI entrypoint for the chat capture/translation
// pipeline: it wires the capture engine, stream reassembler, protocol
// decoder, dedup gate, event bus, and translation worker into a runnable
// process and exposes the model manager and config store as subcommands.
package main

func main() {
	Execute()
}
