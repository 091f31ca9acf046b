package main

import (
	"fmt"
	"net/netip"
	"os"

	"go.uber.org/zap"

	"github.com/aglyzov/go-radix/inet"
	"github.com/aglyzov/go-radix/radix"
)

func main() {
	log, _ := zap.NewDevelopment()
	defer log.Sync() //nolint:errcheck

	h := radix.New(radix.Config{Logger: log})

	for i, s := range []string{"10.0.0.1/32", "10.0.0.0/24", "10.0.0.0/16", "0.0.0.0/0"} {
		key, mask := inet.Prefix(netip.MustParsePrefix(s))
		if _, err := h.AddRoute(key, mask, fmt.Sprintf("gw%d", i), h.AllocPair(), 0); err != nil {
			log.Fatal("add route", zap.String("prefix", s), zap.Error(err))
		}
	}

	h.DebugDump(os.Stdout)

	println("------")

	for _, s := range []string{"10.0.0.1", "10.0.0.5", "10.0.1.5", "11.0.0.1"} {
		e, ok := h.Match(inet.Key(netip.MustParseAddr(s)))
		if !ok {
			fmt.Printf("%-9s -> no route\n", s)
			continue
		}
		p, _ := inet.ToPrefix(e.Key, e.Mask)
		fmt.Printf("%-9s -> %v via %v\n", s, p, e.Val)
	}

	println("------")

	key, mask := inet.Prefix(netip.MustParsePrefix("10.0.0.0/24"))
	if e, err := h.Delete(key, mask, radix.NoPair); err == nil {
		_ = h.FreePair(e.Pair)
	}

	_ = h.Walk(func(e radix.Entry) error {
		p, _ := inet.ToPrefix(e.Key, e.Mask)
		fmt.Printf("%v via %v\n", p, e.Val)
		return nil
	})
}
