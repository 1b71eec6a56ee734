package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/amirphl/shorty/utils"
)

// Base62Alphabet doubles as the short code alphabet and the base62 digit set
const Base62Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	base62Base         = uint64(len(Base62Alphabet))
	// bytes at or above the largest multiple of 62 below 256 are rejected to keep draws uniform
	base62RejectAbove  = 256 - 256%len(Base62Alphabet)
	defaultMaxAttempts = 10
)

var (
	ErrInvalidAlias      = errors.New("custom alias must be 3 to 10 characters from [a-zA-Z0-9]")
	ErrAliasTaken        = errors.New("custom alias is already taken")
	ErrNoCodeAvailable   = errors.New("no short code available")
	ErrInvalidBase62     = errors.New("invalid base62 string")
	ErrBase62Overflow    = errors.New("base62 value overflows uint64")
	ErrInvalidCodeLength = errors.New("invalid short code length")
)

// EncodeBase62 renders n with the most significant digit first. EncodeBase62(0) is "a".
func EncodeBase62(n uint64) string {
	if n == 0 {
		return Base62Alphabet[:1]
	}
	var buf [11]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = Base62Alphabet[n%base62Base]
		n /= base62Base
	}
	return string(buf[i:])
}

// DecodeBase62 is the inverse of EncodeBase62
func DecodeBase62(s string) (uint64, error) {
	if s == "" {
		return 0, ErrInvalidBase62
	}
	var n uint64
	for _, r := range s {
		d := strings.IndexRune(Base62Alphabet, r)
		if d < 0 {
			return 0, fmt.Errorf("%w: unexpected symbol %q", ErrInvalidBase62, r)
		}
		if n > (math.MaxUint64-uint64(d))/base62Base {
			return 0, ErrBase62Overflow
		}
		n = n*base62Base + uint64(d)
	}
	return n, nil
}

// CodeSet is a snapshot of codes already issued
type CodeSet map[string]struct{}

func NewCodeSet(codes []string) CodeSet {
	set := make(CodeSet, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}

func (s CodeSet) Contains(code string) bool {
	_, ok := s[code]
	return ok
}

// CodeGenerator produces and validates short codes
type CodeGenerator interface {
	Generate(length int) (string, error)
	Validate(code string) bool
	// GenerateUnique returns customAlias verbatim when it is valid and free. Otherwise it draws
	// random codes at the default length, then at default length + 1, maxAttempts times each.
	GenerateUnique(existing CodeSet, customAlias string, maxAttempts int) (string, error)
	DefaultLength() int
}

// CodeGeneratorImpl implements CodeGenerator
type CodeGeneratorImpl struct {
	defaultLength int
	random        io.Reader
}

// NewCodeGenerator uses crypto/rand when random is nil
func NewCodeGenerator(defaultLength int, random io.Reader) CodeGenerator {
	if defaultLength <= 0 {
		defaultLength = utils.DefaultShortCodeLength
	}
	if random == nil {
		random = rand.Reader
	}
	return &CodeGeneratorImpl{defaultLength: defaultLength, random: random}
}

func (g *CodeGeneratorImpl) DefaultLength() int {
	return g.defaultLength
}

func (g *CodeGeneratorImpl) Generate(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidCodeLength
	}

	code := make([]byte, 0, length)
	buf := make([]byte, length+length/2)
	for len(code) < length {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= base62RejectAbove {
				continue
			}
			code = append(code, Base62Alphabet[int(b)%len(Base62Alphabet)])
			if len(code) == length {
				break
			}
		}
	}
	return string(code), nil
}

func (g *CodeGeneratorImpl) Validate(code string) bool {
	if len(code) < utils.MinShortCodeLength || len(code) > utils.MaxShortCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(Base62Alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}

func (g *CodeGeneratorImpl) GenerateUnique(existing CodeSet, customAlias string, maxAttempts int) (string, error) {
	if customAlias != "" {
		if !g.Validate(customAlias) {
			return "", ErrInvalidAlias
		}
		if existing.Contains(customAlias) {
			return "", ErrAliasTaken
		}
		return customAlias, nil
	}

	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	for _, length := range []int{g.defaultLength, g.defaultLength + 1} {
		for range maxAttempts {
			code, err := g.Generate(length)
			if err != nil {
				return "", err
			}
			if !existing.Contains(code) {
				return code, nil
			}
		}
	}

	return "", ErrNoCodeAvailable
}
