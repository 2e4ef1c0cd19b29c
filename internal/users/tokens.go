package users

// EstimateTokens оценивает стоимость обмена в токенах по суммарной длине
// текста запроса и ответа в символах: ceil((userLen + aiLen) / 4).
func EstimateTokens(userLen, aiLen int) int64 {
	total := userLen + aiLen
	if total <= 0 {
		return 0
	}
	return int64((total + 3) / 4)
}
