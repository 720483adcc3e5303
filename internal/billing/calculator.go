package billing

import (
	"math"

	"storyvideo-server/shared/models"
)

// Rates — тарифы операций в MXN. Значения берутся из конфигурации,
// а не зашиваются в код: их меняет бизнес, а не релиз.
type Rates struct {
	VideoPerSecondMXN float64
	ImageMXN          float64
	TextMXN           float64
}

// Calculator оценивает стоимость операции до вызова провайдера и
// считает фактическую стоимость после.
type Calculator struct {
	rates Rates
}

func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Estimate возвращает оценочную стоимость операции в MXN до её выполнения.
// Видео тарифицируется за секунду запрошенной длительности, изображение и
// текстовое планирование имеют фиксированную цену. Для неизвестного типа
// операции цена НЕ угадывается: возвращается 0 и ErrUnpricedOperation,
// вызывающий обязан отказаться от списания.
func (c *Calculator) Estimate(genType models.GenerationType, durationSeconds int) (float64, error) {
	switch genType {
	case models.GenerationTypeVideo:
		return roundMXN(c.rates.VideoPerSecondMXN * float64(durationSeconds)), nil
	case models.GenerationTypeImage:
		return c.rates.ImageMXN, nil
	case models.GenerationTypeStyle:
		return c.rates.TextMXN, nil
	default:
		return 0, models.ErrUnpricedOperation
	}
}

// RealizedVideoCost возвращает фактическую стоимость видео по измеренной
// длительности готового ролика. Провайдер может вернуть ролик длиннее или
// короче запрошенного, платим за то, что реально получили.
func (c *Calculator) RealizedVideoCost(measuredSeconds float64) float64 {
	if measuredSeconds <= 0 {
		return 0
	}
	return roundMXN(c.rates.VideoPerSecondMXN * measuredSeconds)
}

// roundMXN округляет до сентаво, чтобы в журнал не попадали хвосты
// плавающей точки.
func roundMXN(v float64) float64 {
	return math.Round(v*100) / 100
}
