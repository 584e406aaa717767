// utilitário pequeno para formatação rápida/consistente de valores numéricos
// em headers. Evita puxar fmt (mais pesado e genérico) só para isso.

package ratelimit

import "strconv"

func formatInt(v int) string { return strconv.Itoa(v) }

func formatInt64(v int64) string { return strconv.FormatInt(v, 10) }
