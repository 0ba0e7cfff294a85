package utils

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"math/bits"
	"math/rand"
	"net/netip"
)

// FunFactPlaceholder is returned whenever a fact cannot be computed.
const FunFactPlaceholder = "This address is too mysterious for fun facts."

// RandomSource picks the fact. *rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
}

type globalRand struct{}

// Intn uses the process-wide source, which is safe for concurrent use.
func (globalRand) Intn(n int) int {
	return rand.Intn(n)
}

// GlobalRand is a RandomSource backed by math/rand's shared source.
var GlobalRand RandomSource = globalRand{}

// ipNumber is an address seen as an unsigned integer of bits width.
type ipNumber struct {
	value   *big.Int
	bits    int
	version int
	raw     []byte
}

type factFunc func(n ipNumber) (string, error)

var errNotFinite = errors.New("result is not finite")

var factCatalog = []factFunc{
	func(n ipNumber) (string, error) {
		set := 0
		for _, b := range n.raw {
			set += bits.OnesCount8(b)
		}
		return fmt.Sprintf("%d of the %d bits in your address are set.", set, n.bits), nil
	},
	func(n ipNumber) (string, error) {
		return fmt.Sprintf("Divided by 7, your address leaves a remainder of %d.", remainder(n.value, 7)), nil
	},
	func(n ipNumber) (string, error) {
		return fmt.Sprintf("Divided by 13, your address leaves a remainder of %d.", remainder(n.value, 13)), nil
	},
	func(n ipNumber) (string, error) {
		return sibling(n, 3)
	},
	func(n ipNumber) (string, error) {
		return sibling(n, 7)
	},
	func(n ipNumber) (string, error) {
		return fmt.Sprintf("Written as a single number, your address is %s.", n.value.String()), nil
	},
	func(n ipNumber) (string, error) {
		sum := 0
		for _, d := range n.value.String() {
			sum += int(d - '0')
		}
		return fmt.Sprintf("The decimal digits of your address add up to %d.", sum), nil
	},
	func(n ipNumber) (string, error) {
		space := new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), uint(n.bits)))
		share, _ := new(big.Float).Quo(new(big.Float).SetInt(n.value), space).Float64()
		percent := share * 100
		if math.IsNaN(percent) || math.IsInf(percent, 0) {
			return "", errNotFinite
		}
		return fmt.Sprintf("%.6f%% of the IPv%d address space lies below your address.", percent, n.version), nil
	},
}

func remainder(v *big.Int, m int64) int64 {
	return new(big.Int).Mod(v, big.NewInt(m)).Int64()
}

// sibling multiplies the address by k modulo the size of its address space.
func sibling(n ipNumber, k int64) (string, error) {
	space := new(big.Int).Lsh(big.NewInt(1), uint(n.bits))
	s := new(big.Int).Mul(n.value, big.NewInt(k))
	s.Mod(s, space)

	buf := make([]byte, n.bits/8)
	s.FillBytes(buf)
	addr, ok := netip.AddrFromSlice(buf)
	if !ok {
		return "", fmt.Errorf("cannot build address from %d bytes", len(buf))
	}
	return fmt.Sprintf("Multiply your address by %d and wrap around the IPv%d space: you land on %s.", k, n.version, addr), nil
}

// FunFactGenerator produces a random fact about an address.
type FunFactGenerator struct {
	rng RandomSource
}

// NewFunFactGenerator creates a generator. A nil source means GlobalRand.
func NewFunFactGenerator(rng RandomSource) *FunFactGenerator {
	if rng == nil {
		rng = GlobalRand
	}
	return &FunFactGenerator{rng: rng}
}

// Generate picks one fact for addr. It never fails: anything that cannot be
// computed becomes FunFactPlaceholder.
func (g *FunFactGenerator) Generate(addr netip.Addr) string {
	if !addr.IsValid() {
		return FunFactPlaceholder
	}
	addr = addr.Unmap()
	raw := addr.AsSlice()
	n := ipNumber{
		value:   new(big.Int).SetBytes(raw),
		bits:    addr.BitLen(),
		version: IPVersion(addr),
		raw:     raw,
	}

	idx := g.rng.Intn(len(factCatalog))
	if idx < 0 || idx >= len(factCatalog) {
		return FunFactPlaceholder
	}
	fact, err := factCatalog[idx](n)
	if err != nil || fact == "" {
		return FunFactPlaceholder
	}
	return fact
}
