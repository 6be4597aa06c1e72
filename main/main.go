package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/ontanj/smpc"
	"github.com/ontanj/smpc/logging"
	"github.com/ontanj/smpc/paillier"
	"github.com/ontanj/smpc/transport/mocknet"
)

func main() {
	startT := time.Now()

	if len(os.Args) != 3 {
		fmt.Println("Wrong number of arguments: key-bits file-with-pairs")
		os.Exit(1)
	}
	keyBits, err := strconv.Atoi(os.Args[1])
	if err != nil {
		fmt.Println("Error when parsing key-bits")
		os.Exit(1)
	}
	pairs := parsePairFile(os.Args[2])

	log := logging.New(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	setting := smpc.Setting{KeyBits: keyBits, Logger: log}
	helper, party, sk, err := smpc.Setup(setting)
	if err != nil {
		fmt.Printf("Setup failed: %v\n", err)
		os.Exit(1)
	}
	pk := helper.PublicKey()
	fmt.Printf("key: %d bits, blinding: %d bits, setup %f s\n", pk.BitLen(), helper.BlindingBits(), time.Since(startT).Seconds())

	ctx, cancel := context.WithCancel(context.Background())
	helperEp, decryptorEp := mocknet.New().Pair()
	done := make(chan error, 1)
	go func() {
		done <- smpc.ServeDecryption(ctx, decryptorEp, pk, party, log)
	}()
	protocol := smpc.NewProtocol(helper, smpc.NewRemoteOracle(helperEp, pk, log))

	timings := make(map[string][]float64)
	for i, pair := range pairs {
		fmt.Printf("pair %d: x1 = %s, x2 = %s\n", i+1, pair[0], pair[1])
		if err := runPair(ctx, protocol, sk, pair, timings); err != nil {
			fmt.Printf("         error: %v\n", err)
		}
	}

	cancel()
	if err := <-done; err != nil {
		fmt.Printf("oracle server: %v\n", err)
	}

	fmt.Println("-------")
	printTimings(timings)
	fmt.Printf("%f s elapsed\n", time.Since(startT).Seconds())
}

type step struct {
	name string
	run  func(ctx context.Context, x1, x2 smpc.Operand) ([]smpc.Operand, error)
}

func single(f func(ctx context.Context, x1, x2 smpc.Operand) (smpc.Operand, error)) func(context.Context, smpc.Operand, smpc.Operand) ([]smpc.Operand, error) {
	return func(ctx context.Context, x1, x2 smpc.Operand) ([]smpc.Operand, error) {
		res, err := f(ctx, x1, x2)
		if err != nil {
			return nil, err
		}
		return []smpc.Operand{res}, nil
	}
}

var steps = []step{
	{"mul", single(func(ctx context.Context, x1, x2 smpc.Operand) (smpc.Operand, error) { return x1.Mul(ctx, x2) })},
	{"div", single(func(ctx context.Context, x1, x2 smpc.Operand) (smpc.Operand, error) { return x1.Div(ctx, x2) })},
	{"max", single(func(ctx context.Context, x1, x2 smpc.Operand) (smpc.Operand, error) { return x1.Max(ctx, x2) })},
	{"min", single(func(ctx context.Context, x1, x2 smpc.Operand) (smpc.Operand, error) { return x1.Min(ctx, x2) })},
	{"eq", single(func(ctx context.Context, x1, x2 smpc.Operand) (smpc.Operand, error) { return x1.SecureEq(ctx, x2) })},
	{"ne", single(func(ctx context.Context, x1, x2 smpc.Operand) (smpc.Operand, error) { return x1.SecureNe(ctx, x2) })},
	{"gt", single(func(ctx context.Context, x1, x2 smpc.Operand) (smpc.Operand, error) { return x1.SecureGt(ctx, x2) })},
	{"ge", single(func(ctx context.Context, x1, x2 smpc.Operand) (smpc.Operand, error) { return x1.SecureGe(ctx, x2) })},
	{"lt", single(func(ctx context.Context, x1, x2 smpc.Operand) (smpc.Operand, error) { return x1.SecureLt(ctx, x2) })},
	{"le", single(func(ctx context.Context, x1, x2 smpc.Operand) (smpc.Operand, error) { return x1.SecureLe(ctx, x2) })},
	{"parity(x1)", single(func(ctx context.Context, x1, _ smpc.Operand) (smpc.Operand, error) { return x1.Parity(ctx) })},
	{"bit_dec(x1, 16)", func(ctx context.Context, x1, _ smpc.Operand) ([]smpc.Operand, error) { return x1.BitDec(ctx, 16) }},
}

func runPair(ctx context.Context, protocol *smpc.Protocol, sk *paillier.SecretKey, pair [2]string, timings map[string][]float64) error {
	x1, err := encryptElement(protocol, pair[0])
	if err != nil {
		return err
	}
	x2, err := encryptElement(protocol, pair[1])
	if err != nil {
		return err
	}
	for _, s := range steps {
		t := time.Now()
		res, err := s.run(ctx, x1, x2)
		if err != nil {
			fmt.Printf("         %s: %v\n", s.name, err)
			continue
		}
		timings[s.name] = append(timings[s.name], time.Since(t).Seconds()*1000)
		values := make([]string, len(res))
		for i, r := range res {
			v, err := sk.Decrypt(r.Decode())
			if err != nil {
				return err
			}
			values[i] = readableRat(v)
		}
		fmt.Printf("         %s = %s\n", s.name, strings.Join(values, ", "))
	}
	return nil
}

func encryptElement(protocol *smpc.Protocol, s string) (smpc.Operand, error) {
	if n, ok := new(big.Int).SetString(s, 10); ok {
		return protocol.Encrypt(paillier.EncodeInt(n))
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return smpc.Operand{}, fmt.Errorf("parsing element %v: %w", s, err)
	}
	return protocol.EncryptFloat(f)
}

func readableRat(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	return r.FloatString(10)
}

func printTimings(timings map[string][]float64) {
	for _, s := range steps {
		values := timings[s.name]
		if len(values) == 0 {
			continue
		}
		mean, _ := stats.Mean(values)
		median, _ := stats.Median(values)
		p95, _ := stats.Percentile(values, 95)
		fmt.Printf("%-16s n=%d mean=%.2f ms median=%.2f ms p95=%.2f ms\n", s.name, len(values), mean, median, p95)
	}
}

func parsePairFile(filename string) [][2]string {
	dat, err := os.ReadFile(filename)
	if err != nil {
		fmt.Printf("Error when reading file %v\n", filename)
		os.Exit(1)
	}
	file := strings.ReplaceAll(string(dat), "\r\n", "\n")
	file = strings.Trim(file, "\n")
	var pairs [][2]string
	for _, line := range strings.Split(file, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 2 {
			fmt.Printf("Error when parsing line %q: want x1,x2\n", line)
			os.Exit(1)
		}
		pairs = append(pairs, [2]string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])})
	}
	return pairs
}
