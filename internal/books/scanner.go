package books

import "github.com/JaimeStill/book-search/pkg/repository"

func scanBook(s repository.Scanner) (Book, error) {
	var b Book
	err := s.Scan(
		&b.ID,
		&b.Position,
		&b.Title,
		&b.Cover,
		&b.Txt,
		&b.SyncedAt,
	)
	return b, err
}
