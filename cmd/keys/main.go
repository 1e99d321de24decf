package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/quantdesk/usdthub/wallet"
)

// Derives the first few deposit addresses from the configured xpub so an
// operator can cross-check them against the wallet before pointing the
// server at it. A mismatch here means orders would collect funds at
// addresses nobody controls.
func main() {
	count := flag.Uint("n", 5, "number of addresses to derive")
	xpub := flag.String("xpub", "", "extended public key (defaults to USDT_TRC20_XPUB)")
	flag.Parse()

	if err := godotenv.Load(".env"); err != nil {
		fmt.Println("Failed to load .env file")
	}
	if *xpub == "" {
		*xpub = os.Getenv("USDT_TRC20_XPUB")
	}
	if *xpub == "" {
		log.Fatal("no xpub given, set USDT_TRC20_XPUB or pass -xpub")
	}

	allocator, err := wallet.NewAllocator(*xpub)
	if err != nil {
		log.Fatalf("unusable xpub: %v", err)
	}
	for index := uint32(0); index < uint32(*count); index++ {
		address, err := allocator.Derive(index)
		if err != nil {
			log.Fatalf("deriving index %d: %v", index, err)
		}
		fmt.Printf("%d\t%s\n", index, address)
	}
}
