package models

// CurrencyMXN — валюта биллинга.
const CurrencyMXN = "MXN"

// CreditBalance — текущий баланс пользователя.
// Ядро только читает баланс; списание выполняет внешний биллинг-сервис
// по факту завершения генерации, поэтому проверка баланса носит
// исключительно консультативный характер.
type CreditBalance struct {
	Balance  float64 `json:"balance" db:"balance"`
	Currency string  `json:"currency" db:"currency"`
}
