package models

// SegmentResult — результат генерации одного сегмента истории.
type SegmentResult struct {
	SegmentNumber int     `json:"segment_number"` // 1-based
	Title         string  `json:"title"`
	RecordID      string  `json:"record_id"` // id записи в леджере
	Payload       []byte  `json:"-"`         // сырые байты видео
	OutputURL     string  `json:"output_url"`
	MimeType      string  `json:"mime_type"`
	CostMXN       float64 `json:"cost_mxn"`
	WasExtended   bool    `json:"was_extended"` // true, если сегмент продолжает предыдущий
}

// StoryChainResult — упорядоченный список результатов по сегментам.
// Наполняется инкрементально; после завершения или прерывания цепочки
// больше не изменяется.
type StoryChainResult struct {
	Segments []SegmentResult `json:"segments"`
}

// TotalCostMXN возвращает суммарную фактическую стоимость завершённых сегментов.
func (r *StoryChainResult) TotalCostMXN() float64 {
	var total float64
	for _, s := range r.Segments {
		total += s.CostMXN
	}
	return total
}
