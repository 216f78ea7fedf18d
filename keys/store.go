package keys

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"xdao.co/ledgertx/model"
)

// KeyStore keeps named private keys on the local filesystem.
//
// Each key lives in <Directory>/<name>.key: the first line is the key in its
// String form, the optional second line is the account id it signs for.
type KeyStore struct {
	Directory string
}

type KeyEntry struct {
	Name      string
	PublicKey PublicKey
	AccountID *model.AccountID
}

func GetDefaultDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".ledgertx", "keys"), nil
}

func OpenKeyStore(directory string) (*KeyStore, error) {
	if directory == "" {
		var err error
		directory, err = GetDefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	return &KeyStore{Directory: directory}, nil
}

func CheckKeyName(name string) error {
	if name == "" {
		return errors.New("key name cannot be empty")
	}
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= 'A' && char <= 'Z') || (char >= '0' && char <= '9') || char == '-' || char == '_' {
			continue
		}
		return fmt.Errorf("invalid character %q in key name", char)
	}
	return nil
}

func (ks *KeyStore) path(name string) string {
	return filepath.Join(ks.Directory, name+".key")
}

// Save writes key under name. Existing keys are only replaced when overwrite is set.
func (ks *KeyStore) Save(name string, key PrivateKey, account *model.AccountID, overwrite bool) (string, error) {
	if err := CheckKeyName(name); err != nil {
		return "", err
	}
	if key.Kind() == 0 {
		return "", errors.New("cannot save an empty key")
	}
	filePath := ks.path(name)
	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return "", err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(filePath, flags, 0o600)
	if err != nil {
		return "", err
	}
	defer file.Close()

	content := key.String() + "\n"
	if account != nil {
		content += account.String() + "\n"
	}
	if _, err := file.WriteString(content); err != nil {
		return "", err
	}
	return filePath, file.Close()
}

// Load returns the key stored under name and its account id, if recorded.
func (ks *KeyStore) Load(name string) (PrivateKey, *model.AccountID, error) {
	if err := CheckKeyName(name); err != nil {
		return PrivateKey{}, nil, err
	}
	return LoadKeyFile(ks.path(name))
}

// LoadKeyFile reads a key file written by Save.
func LoadKeyFile(filePath string) (PrivateKey, *model.AccountID, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return PrivateKey{}, nil, err
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	key, err := ParsePrivateKey(lines[0])
	if err != nil {
		return PrivateKey{}, nil, fmt.Errorf("%s: %w", filePath, err)
	}
	if len(lines) < 2 || strings.TrimSpace(lines[1]) == "" {
		return key, nil, nil
	}
	account, err := model.ParseAccountID(lines[1])
	if err != nil {
		return PrivateKey{}, nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return key, &account, nil
}

func (ks *KeyStore) List() ([]KeyEntry, error) {
	entries, err := os.ReadDir(ks.Directory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".key") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".key"))
	}
	sort.Strings(names)

	result := make([]KeyEntry, 0, len(names))
	for _, name := range names {
		key, account, err := ks.Load(name)
		if err != nil {
			return nil, err
		}
		result = append(result, KeyEntry{Name: name, PublicKey: key.PublicKey(), AccountID: account})
	}
	return result, nil
}
