package catalog

import (
	"cassette/model"

	"github.com/shopspring/decimal"
)

// demoTracks is the built-in catalog used when no catalog file is
// configured. Prices are in the catalog's native currency unit.
func demoTracks() []*model.Track {
	mk := func(id int64, title, artist, price, payee string, plays int64) *model.Track {
		t, err := model.NewTrack(id, title, artist, decimal.RequireFromString(price), payee)
		if err != nil {
			// The demo data is compiled in; a failure here is a bug.
			panic(err)
		}
		t.PlayCount = plays
		return t
	}

	return []*model.Track{
		mk(1, "Neon Dreams", "CryptoBeats", "0.001", "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb", 1247),
		mk(2, "Blockchain Rhythm", "Web3 Collective", "0.0015", "0x8ba1f109551bD432803012645Ac136ddd64DBA72", 892),
		mk(3, "Decentralized Harmony", "NFT Sounds", "0.002", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", 2341),
		mk(4, "Smart Contract Symphony", "DAO Musicians", "0.0012", "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359", 1567),
		mk(5, "Ethereum Echoes", "Chain Melody", "0.0018", "0x4B20993Bc481177ec7E8f571ceCaE8A9e22C02db", 3421),
	}
}
