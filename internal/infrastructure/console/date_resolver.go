package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"rqmstats/internal/domain/models"
)

// ErrNoInput ввод закончился раньше, чем были запрошены все даты
var ErrNoInput = errors.New("no date entered: input closed")

// DateResolver спрашивает дату задания у оператора, по одной строке на партицию
type DateResolver struct {
	in  *bufio.Reader
	out io.Writer
}

// NewDateResolver создает резолвер над потоками ввода и вывода
func NewDateResolver(in io.Reader, out io.Writer) *DateResolver {
	return &DateResolver{in: bufio.NewReader(in), out: out}
}

// ResolveDate выводит приглашение и читает одну строку
func (r *DateResolver) ResolveDate(ctx context.Context, partition models.PartitionHandle) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if _, err := fmt.Fprintf(r.out, "Enter the date for job '%s' (dd/mm/yyyy): ", partition.Name); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}

	line, err := r.in.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read date: %w", err)
		}
		// Последняя строка без перевода строки все еще годится
		if line == "" {
			return "", ErrNoInput
		}
	}

	return strings.TrimSpace(line), nil
}
