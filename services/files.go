package services

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"gorm.io/gorm"

	"chatyar/database"
	"chatyar/utils"
)

// FileService ذخیره‌سازی فایل‌های پیوست پیام‌ها
type FileService struct {
	db         *gorm.DB
	uploadPath string
}

func NewFileService(db *gorm.DB, uploadPath string) *FileService {
	return &FileService{db: db, uploadPath: uploadPath}
}

// SaveUpload ذخیره فایل آپلودشده روی دیسک و ثبت رکورد آن
func (s *FileService) SaveUpload(userID uint, header *multipart.FileHeader) (*database.UploadedFile, error) {
	src, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("خطا در باز کردن فایل: %w", err)
	}
	defer src.Close()

	filename := utils.GenerateUniqueFilename(header.Filename)
	destPath := filepath.Join(s.uploadPath, filename)

	if err := os.MkdirAll(s.uploadPath, 0o755); err != nil {
		return nil, fmt.Errorf("خطا در ایجاد پوشه آپلود: %w", err)
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("خطا در ایجاد فایل: %w", err)
	}
	defer dest.Close()

	written, err := io.Copy(dest, src)
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("خطا در ذخیره فایل: %w", err)
	}

	record := database.UploadedFile{
		UserID:    userID,
		Filename:  header.Filename,
		Path:      destPath,
		SizeBytes: written,
		Extension: utils.FileExtension(header.Filename),
		MimeType:  header.Header.Get("Content-Type"),
	}
	if err := s.db.Create(&record).Error; err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("خطا در ثبت فایل: %w", err)
	}

	return &record, nil
}

// GetUserFiles فایل‌های یک کاربر بر اساس شناسه؛ مالکیت بررسی می‌شود
func (s *FileService) GetUserFiles(userID uint, fileIDs []uint) ([]database.UploadedFile, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}
	var files []database.UploadedFile
	err := s.db.Where("user_id = ? AND id IN ?", userID, fileIDs).Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("خطا در خواندن فایل‌ها: %w", err)
	}
	if len(files) != len(fileIDs) {
		return nil, fmt.Errorf("برخی فایل‌ها یافت نشدند")
	}
	return files, nil
}

// ToFileInfo تبدیل رکوردها به اطلاعات لازم برای بررسی سهمیه
func ToFileInfo(files []database.UploadedFile) []FileInfo {
	infos := make([]FileInfo, 0, len(files))
	for i := range files {
		infos = append(infos, FileInfo{
			Filename:  files[i].Filename,
			SizeBytes: files[i].SizeBytes,
		})
	}
	return infos
}
